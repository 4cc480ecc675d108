package confidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/model"
)

func defaultConfidenceConfig() config.ConfidenceConfig {
	return config.ConfidenceConfig{
		QualityWeight:     0.30,
		ReliabilityWeight: 0.25,
		ContextualWeight:  0.20,
		HistoricalWeight:  0.15,
		ComplexityWeight:  0.10,
		Reliability: map[string]float64{
			"simple": 0.95, "moderate": 0.85, "complex": 0.75, "extreme": 0.60,
		},
		Penalty: map[string]float64{
			"simple": 0.05, "moderate": 0.15, "complex": 0.25, "extreme": 0.40,
		},
	}
}

func metricsWithScore(score float64) model.ImageQualityMetrics {
	return model.ImageQualityMetrics{
		Brightness:     0.55,
		NoiseLevel:     0.2,
		ObjectCoverage: 0.6,
		OverallScore:   score,
	}
}

func TestCalculate_HighQualitySimpleNoHistory(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())

	flags := model.ContextFlags{
		HasReferenceModel: true,
		GoodLighting:      true,
		StableEnvironment: true,
	}
	score := s.Calculate(metricsWithScore(0.9), metricsWithScore(0.92),
		model.ComplexitySimple, model.ModelPerformanceHistory{}, flags)

	// quality (0.9+0.92)/2 = 0.91, reliability 0.95, contextual
	// 0.7+0.15+0.10+0.05 = 1.0, historical neutral 0.7, penalty 0.05.
	// 0.30*0.91 + 0.25*0.95 + 0.20*1.0 + 0.15*0.7 + 0.10*0.95 = 0.9105
	assert.InDelta(t, 0.9105, score.OverallConfidence, 0.001)
	assert.GreaterOrEqual(t, score.OverallConfidence, 0.85)
	assert.Equal(t, model.ConfidenceVeryHigh, score.Level)
	assert.True(t, score.IsReliableForDecisionMaking())
	assert.False(t, score.RequiresHumanReview())
	require.Len(t, score.Factors, 5)
}

func TestCalculate_NeutralHistoricalBaseline(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	score := s.Calculate(metricsWithScore(0.5), metricsWithScore(0.5),
		model.ComplexityModerate, model.ModelPerformanceHistory{}, model.ContextFlags{})

	assert.InDelta(t, 0.7, score.HistoricalScore, 0.0001)
}

func TestCalculate_HistoricalBlend(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	history := model.ModelPerformanceHistory{
		TotalAnalyses:      10,
		SuccessfulAnalyses: 8,
		RecentAccuracy:     0.9,
		LastUpdated:        time.Now(),
	}
	score := s.Calculate(metricsWithScore(0.5), metricsWithScore(0.5),
		model.ComplexityModerate, history, model.ContextFlags{})

	// 0.4*0.8 + 0.6*0.9 = 0.86
	assert.InDelta(t, 0.86, score.HistoricalScore, 0.0001)
}

func TestCalculate_QualityMonotonic(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	history := model.ModelPerformanceHistory{}
	flags := model.ContextFlags{HasReferenceModel: true}

	prev := -1.0
	for q := 0.0; q <= 1.0; q += 0.1 {
		score := s.Calculate(metricsWithScore(q), metricsWithScore(q),
			model.ComplexityModerate, history, flags)
		assert.GreaterOrEqual(t, score.OverallConfidence, prev, "quality %.1f", q)
		prev = score.OverallConfidence
	}
}

func TestCalculate_ComplexityPenaltyOrdering(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	history := model.ModelPerformanceHistory{}

	var last float64 = 2
	for _, c := range []model.Complexity{
		model.ComplexitySimple, model.ComplexityModerate,
		model.ComplexityComplex, model.ComplexityExtreme,
	} {
		score := s.Calculate(metricsWithScore(0.8), metricsWithScore(0.8), c, history, model.ContextFlags{})
		assert.Less(t, score.OverallConfidence, last, "tier %s", c)
		last = score.OverallConfidence
	}
}

func TestContextualScore_Adjustments(t *testing.T) {
	// Baseline with no flags.
	assert.InDelta(t, 0.7, contextualScore(model.ContextFlags{}), 0.0001)

	// All positive flags cap the factor at 1.0.
	allGood := model.ContextFlags{HasReferenceModel: true, GoodLighting: true, StableEnvironment: true}
	assert.InDelta(t, 1.0, contextualScore(allGood), 0.0001)

	// Negative flags pull below baseline: 0.7 - 0.10 - 0.15 - 0.05 = 0.40.
	allBad := model.ContextFlags{ReflectiveSurfaces: true, PoorAngle: true, BackgroundNoise: true}
	assert.InDelta(t, 0.40, contextualScore(allBad), 0.0001)
}

func TestCalculateFinal_EscalatesOnCriticalDefects(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	pre := model.PreAnalysisResult{
		ReferenceMetrics: metricsWithScore(0.8),
		PartMetrics:      metricsWithScore(0.8),
	}
	report := &model.DefectReport{
		OverallQuality:  model.QualityFail,
		ConfidenceScore: 0.8,
		Defects: []model.Defect{
			{Type: "crack", Severity: model.SeverityCritical},
			{Type: "dent", Severity: model.SeverityCritical},
		},
	}

	score := s.CalculateFinal(pre, report, model.ComplexityModerate, model.ModelPerformanceHistory{})
	assert.Equal(t, model.ComplexityExtreme, score.Complexity)
}

func TestCalculateFinal_RelaxesOnConfirmedCleanResult(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	pre := model.PreAnalysisResult{
		ExpectedConfidence: 0.85,
		ReferenceMetrics:   metricsWithScore(0.9),
		PartMetrics:        metricsWithScore(0.9),
	}
	report := &model.DefectReport{OverallQuality: model.QualityPass, ConfidenceScore: 0.9}

	score := s.CalculateFinal(pre, report, model.ComplexityModerate, model.ModelPerformanceHistory{})
	assert.Equal(t, model.ComplexitySimple, score.Complexity)
}

func TestCalculateFinal_NilReportKeepsComplexity(t *testing.T) {
	s := NewScorer(defaultConfidenceConfig())
	pre := model.PreAnalysisResult{
		ReferenceMetrics: metricsWithScore(0.6),
		PartMetrics:      metricsWithScore(0.6),
	}

	score := s.CalculateFinal(pre, nil, model.ComplexityComplex, model.ModelPerformanceHistory{})
	assert.Equal(t, model.ComplexityComplex, score.Complexity)
}

func TestLevelForConfidence(t *testing.T) {
	assert.Equal(t, model.ConfidenceVeryHigh, model.LevelForConfidence(0.95))
	assert.Equal(t, model.ConfidenceHigh, model.LevelForConfidence(0.75))
	assert.Equal(t, model.ConfidenceMedium, model.LevelForConfidence(0.55))
	assert.Equal(t, model.ConfidenceLow, model.LevelForConfidence(0.35))
	assert.Equal(t, model.ConfidenceVeryLow, model.LevelForConfidence(0.1))
}
