package model

import "time"

// AnalysisStatus tracks one part analysis through its lifecycle.
type AnalysisStatus string

const (
	AnalysisStatusPending  AnalysisStatus = "pending"
	AnalysisStatusRejected AnalysisStatus = "rejected"
	AnalysisStatusComplete AnalysisStatus = "complete"
	AnalysisStatusFailed   AnalysisStatus = "failed"
)

// Analysis is the persisted record of a single photo-pair inspection: the
// quality gate verdict, the vision result (when the gate passed), the
// calibrated confidence, and recommendations.
type Analysis struct {
	ID         string         `json:"id"`
	PartType   string         `json:"part_type"`
	Status     AnalysisStatus `json:"status"`
	Complexity Complexity     `json:"complexity"`

	PreAnalysis     *PreAnalysisResult       `json:"pre_analysis,omitempty"`
	Report          *DefectReport            `json:"report,omitempty"`
	Confidence      *EnhancedConfidenceScore `json:"confidence,omitempty"`
	Recommendations []ActionRecommendation   `json:"recommendations,omitempty"`

	TokenUsage   TokenUsage `json:"token_usage"`
	CostUSD      float64    `json:"cost_usd"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CombinedQualityScore blends the vision model's own confidence with the
// enhanced confidence factors. Used as the weighting factor in batch
// aggregate statistics.
func (a *Analysis) CombinedQualityScore() float64 {
	if a.Report == nil || a.Confidence == nil {
		return 0
	}
	return Clamp01(0.5*a.Report.ConfidenceScore + 0.5*a.Confidence.OverallConfidence)
}

// Succeeded reports whether the analysis ran to completion.
func (a *Analysis) Succeeded() bool {
	return a.Status == AnalysisStatusComplete
}
