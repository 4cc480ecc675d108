package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/model"
)

func goodMetrics() model.ImageQualityMetrics {
	return model.ImageQualityMetrics{
		Sharpness:      0.8,
		Brightness:     0.55,
		Contrast:       0.6,
		NoiseLevel:     0.2,
		Resolution:     0.9,
		Compression:    0.8,
		ObjectCoverage: 0.6,
		OverallScore:   0.8,
	}
}

func highScore() model.EnhancedConfidenceScore {
	return model.EnhancedConfidenceScore{
		OverallConfidence: 0.9,
		Factors: []model.ConfidenceFactor{
			{Type: model.FactorImageQuality, Score: 0.9},
			{Type: model.FactorModelReliability, Score: 0.85},
			{Type: model.FactorContextual, Score: 0.9},
			{Type: model.FactorHistorical, Score: 0.7},
			{Type: model.FactorComplexity, Score: 0.85},
		},
	}
}

func TestRecommend_CleanAnalysisNoRecommendations(t *testing.T) {
	e := NewEngine()
	recs := e.Recommend(goodMetrics(), goodMetrics(), highScore(), nil, nil)
	assert.Empty(t, recs)
}

func TestRecommend_DedupesSameIssueAcrossImages(t *testing.T) {
	e := NewEngine()

	ref := goodMetrics()
	ref.Sharpness = 0.4
	part := goodMetrics()
	part.Sharpness = 0.3

	recs := e.Recommend(ref, part, highScore(), nil, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "retake_focus", recs[0].Category)
}

func TestRecommend_DedupeKeepsHigherPriority(t *testing.T) {
	e := NewEngine()

	ref := goodMetrics()
	ref.Sharpness = 0.45 // major
	part := goodMetrics()
	part.Sharpness = 0.1 // critical

	recs := e.Recommend(ref, part, highScore(), nil, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, model.PriorityCritical, recs[0].Priority)
}

func TestRecommend_CappedAtFive(t *testing.T) {
	e := NewEngine()

	// Every issue type fires on both images plus weak confidence factors.
	bad := model.ImageQualityMetrics{
		Sharpness:      0.1,
		Brightness:     0.05,
		Contrast:       0.1,
		NoiseLevel:     0.9,
		Resolution:     0.2,
		ObjectCoverage: 0.1,
	}
	weak := model.EnhancedConfidenceScore{
		OverallConfidence: 0.3,
		Factors: []model.ConfidenceFactor{
			{Type: model.FactorImageQuality, Score: 0.2},
			{Type: model.FactorContextual, Score: 0.4},
			{Type: model.FactorComplexity, Score: 0.5},
			{Type: model.FactorModelReliability, Score: 0.5},
			{Type: model.FactorHistorical, Score: 0.5},
		},
	}

	recs := e.Recommend(bad, bad, weak, nil, nil)
	assert.Len(t, recs, 5)
}

func TestRecommend_SortedByPriority(t *testing.T) {
	e := NewEngine()

	ref := goodMetrics()
	ref.Contrast = 0.25 // major contrast issue, high priority
	part := goodMetrics()
	part.Sharpness = 0.1 // critical blur

	recs := e.Recommend(ref, part, highScore(), nil, nil)
	require.GreaterOrEqual(t, len(recs), 2)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Priority.Rank(), recs[i].Priority.Rank())
	}
	assert.Equal(t, model.PriorityCritical, recs[0].Priority)
}

func TestRecommend_FactorThreshold(t *testing.T) {
	e := NewEngine()

	score := highScore()
	score.Factors[0].Score = 0.6 // exactly at threshold: no recommendation

	recs := e.Recommend(goodMetrics(), goodMetrics(), score, nil, nil)
	assert.Empty(t, recs)

	score.Factors[0].Score = 0.59
	recs = e.Recommend(goodMetrics(), goodMetrics(), score, nil, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "retake_both", recs[0].Category)
}

func TestRecommend_CriticalDefectsQuarantine(t *testing.T) {
	e := NewEngine()
	report := &model.DefectReport{
		OverallQuality:  model.QualityFail,
		ConfidenceScore: 0.85,
		Defects:         []model.Defect{{Type: "crack", Severity: model.SeverityCritical}},
	}

	recs := e.Recommend(goodMetrics(), goodMetrics(), highScore(), nil, report)
	require.Len(t, recs, 1)
	assert.Equal(t, "critical_defects", recs[0].Category)
	assert.Equal(t, model.PriorityCritical, recs[0].Priority)
	assert.Len(t, recs[0].Steps, 3)
}

func TestRecommend_UsesPreAnalysisIssues(t *testing.T) {
	e := NewEngine()

	// When a gate result is supplied its issue list wins over recomputation.
	pre := &model.PreAnalysisResult{
		Issues: []model.QualityIssue{
			{Type: model.IssueNoise, Severity: model.SeverityMajor, Score: 0.3},
		},
	}
	recs := e.Recommend(goodMetrics(), goodMetrics(), highScore(), pre, nil)
	require.Len(t, recs, 1)
	assert.Equal(t, "reduce_noise", recs[0].Category)
}

func TestRecommend_InformationalFactors(t *testing.T) {
	e := NewEngine()

	score := highScore()
	score.Factors[1].Score = 0.5 // model reliability
	score.Factors[3].Score = 0.5 // historical

	recs := e.Recommend(goodMetrics(), goodMetrics(), score, nil, nil)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.True(t, r.Informational)
		assert.Equal(t, model.PriorityLow, r.Priority)
	}
}
