package model

// OverallQuality is the vision model's pass/fail verdict for a part.
type OverallQuality string

const (
	QualityPass    OverallQuality = "pass"
	QualityWarning OverallQuality = "warning"
	QualityFail    OverallQuality = "fail"
)

// Defect is a single flaw reported by the vision model.
type Defect struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// DefectReport is the structured result of one vision AI call comparing a
// reference image against a part image.
type DefectReport struct {
	OverallQuality  OverallQuality `json:"overall_quality"`
	ConfidenceScore float64        `json:"confidence_score"`
	Summary         string         `json:"summary"`
	Defects         []Defect       `json:"defects,omitempty"`
}

// CriticalDefects returns the number of critical-severity defects.
func (r *DefectReport) CriticalDefects() int {
	n := 0
	for _, d := range r.Defects {
		if d.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// IsClean reports whether the model found nothing wrong.
func (r *DefectReport) IsClean() bool {
	return r.OverallQuality == QualityPass && len(r.Defects) == 0
}

// TokenUsage tracks token consumption of a vision call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Total returns combined input and output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}
