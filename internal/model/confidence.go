package model

// Complexity tiers the difficulty of an inspection task. It feeds both the
// model-reliability lookup and the complexity penalty in the confidence score.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityExtreme  Complexity = "extreme"
)

// Valid reports whether c is one of the four known tiers.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityExtreme:
		return true
	}
	return false
}

// Escalate returns the next tier up, saturating at extreme.
func (c Complexity) Escalate() Complexity {
	switch c {
	case ComplexitySimple:
		return ComplexityModerate
	case ComplexityModerate:
		return ComplexityComplex
	default:
		return ComplexityExtreme
	}
}

// Relax returns the next tier down, saturating at simple.
func (c Complexity) Relax() Complexity {
	switch c {
	case ComplexityExtreme:
		return ComplexityComplex
	case ComplexityComplex:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

// FactorType identifies one of the five confidence contributions.
type FactorType string

const (
	FactorImageQuality     FactorType = "image_quality"
	FactorModelReliability FactorType = "model_reliability"
	FactorContextual       FactorType = "contextual"
	FactorHistorical       FactorType = "historical"
	FactorComplexity       FactorType = "complexity"
)

// ConfidenceFactor is a single typed contribution to the overall confidence,
// with a human-readable rationale for display.
type ConfidenceFactor struct {
	Type      FactorType `json:"type"`
	Score     float64    `json:"score"`
	Rationale string     `json:"rationale"`
}

// ConfidenceLevel is a coarse classification of overall confidence.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
)

// LevelForConfidence classifies an overall confidence value.
func LevelForConfidence(overall float64) ConfidenceLevel {
	switch {
	case overall >= 0.9:
		return ConfidenceVeryHigh
	case overall >= 0.7:
		return ConfidenceHigh
	case overall >= 0.5:
		return ConfidenceMedium
	case overall >= 0.3:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// EnhancedConfidenceScore blends image quality, model reliability, context,
// history, and task complexity into one calibrated confidence. Derived data:
// never mutated — a new instance is built whenever inputs change.
type EnhancedConfidenceScore struct {
	ImageQualityScore     float64 `json:"image_quality_score"`
	ModelReliabilityScore float64 `json:"model_reliability_score"`
	ContextualScore       float64 `json:"contextual_score"`
	HistoricalScore       float64 `json:"historical_score"`
	ComplexityPenalty     float64 `json:"complexity_penalty"`

	OverallConfidence float64            `json:"overall_confidence"`
	Level             ConfidenceLevel    `json:"level"`
	Complexity        Complexity         `json:"complexity"`
	Factors           []ConfidenceFactor `json:"factors"`
}

// IsReliableForDecisionMaking reports whether the score is high enough to act
// on without human review.
func (s EnhancedConfidenceScore) IsReliableForDecisionMaking() bool {
	return s.OverallConfidence >= 0.7
}

// RequiresHumanReview reports whether a human must confirm the result.
func (s EnhancedConfidenceScore) RequiresHumanReview() bool {
	return s.OverallConfidence < 0.5
}

// ShouldShowWarnings reports whether the UI should surface caveats.
func (s EnhancedConfidenceScore) ShouldShowWarnings() bool {
	return s.OverallConfidence < 0.7
}

// WithOverallConfidence returns a copy with the overall confidence replaced
// and the level reclassified. The receiver is unchanged.
func (s EnhancedConfidenceScore) WithOverallConfidence(overall float64) EnhancedConfidenceScore {
	next := s
	next.OverallConfidence = overall
	next.Level = LevelForConfidence(overall)
	return next
}

// ContextFlags are signed boolean adjustments to the contextual factor.
type ContextFlags struct {
	HasReferenceModel  bool `json:"has_reference_model"`
	GoodLighting       bool `json:"good_lighting"`
	StableEnvironment  bool `json:"stable_environment"`
	ReflectiveSurfaces bool `json:"reflective_surfaces"`
	PoorAngle          bool `json:"poor_angle"`
	BackgroundNoise    bool `json:"background_noise"`
}
