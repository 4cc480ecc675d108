package model

// Priority ranks recommendations for display ordering.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns a sortable weight for the priority (higher = more urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// RecommendationStep is one ordered action inside a recommendation.
type RecommendationStep struct {
	Order       int    `json:"order"`
	Instruction string `json:"instruction"`
}

// EstimatedImprovement quantifies what following a recommendation is expected
// to gain.
type EstimatedImprovement struct {
	ConfidenceDelta    float64 `json:"confidence_delta"`
	QualityDelta       float64 `json:"quality_delta"`
	SuccessProbability float64 `json:"success_probability"`
}

// ActionRecommendation is a prioritized remediation suggestion. Generated
// fresh per analysis; never mutated.
type ActionRecommendation struct {
	Category      string               `json:"category"`
	Priority      Priority             `json:"priority"`
	Title         string               `json:"title"`
	Steps         []RecommendationStep `json:"steps"`
	EstimatedMins int                  `json:"estimated_mins"`
	Improvement   EstimatedImprovement `json:"improvement"`
	Informational bool                 `json:"informational,omitempty"`
}
