package model

// Decision is the quality-gate verdict issued before any paid AI call.
type Decision string

const (
	// DecisionProceed means both images are good enough to analyze directly.
	DecisionProceed Decision = "proceed"
	// DecisionProceedWithWarning means the analysis may run but expected
	// confidence is reduced.
	DecisionProceedWithWarning Decision = "proceed_with_warning"
	// DecisionOptimizeFirst asks the operator to improve capture conditions
	// before spending inference tokens.
	DecisionOptimizeFirst Decision = "optimize_first"
	// DecisionRejectAndRetake blocks the AI call entirely.
	DecisionRejectAndRetake Decision = "reject_and_retake"
)

// Proceeds reports whether the verdict allows the AI call to run.
func (d Decision) Proceeds() bool {
	return d == DecisionProceed || d == DecisionProceedWithWarning
}

// PreAnalysisResult is the full output of the quality gate for one photo pair.
// Immutable: created once per item and consumed by the orchestrator.
type PreAnalysisResult struct {
	Decision           Decision            `json:"decision"`
	ExpectedConfidence float64             `json:"expected_confidence"`
	ReferenceMetrics   ImageQualityMetrics `json:"reference_metrics"`
	PartMetrics        ImageQualityMetrics `json:"part_metrics"`
	Issues             []QualityIssue      `json:"issues,omitempty"`
	TokensSaved        int                 `json:"tokens_saved"`
	SavingsUSD         float64             `json:"savings_usd"`
	Reason             string              `json:"reason"`
}
