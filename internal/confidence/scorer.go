// Package confidence blends image quality, model reliability, context,
// history, and task complexity into a single calibrated confidence score.
package confidence

import (
	"fmt"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/model"
)

// Scorer computes EnhancedConfidenceScores from configurable weights and
// per-complexity lookup tables.
type Scorer struct {
	cfg config.ConfidenceConfig
}

// NewScorer creates a Scorer with the given weight configuration.
func NewScorer(cfg config.ConfidenceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Calculate builds the pre-call confidence estimate from image quality, an
// a-priori complexity guess, rolling history, and contextual flags.
func (s *Scorer) Calculate(ref, part model.ImageQualityMetrics, complexity model.Complexity, history model.ModelPerformanceHistory, flags model.ContextFlags) model.EnhancedConfidenceScore {
	imageQuality := (ref.OverallScore + part.OverallScore) / 2
	reliability := s.lookup(s.cfg.Reliability, complexity, 0.75)
	contextual := contextualScore(flags)
	historical := historicalScore(history)
	penalty := s.lookup(s.cfg.Penalty, complexity, 0.25)

	overall := model.Clamp01(
		s.cfg.QualityWeight*imageQuality +
			s.cfg.ReliabilityWeight*reliability +
			s.cfg.ContextualWeight*contextual +
			s.cfg.HistoricalWeight*historical +
			s.cfg.ComplexityWeight*(1-penalty),
	)

	return model.EnhancedConfidenceScore{
		ImageQualityScore:     imageQuality,
		ModelReliabilityScore: reliability,
		ContextualScore:       contextual,
		HistoricalScore:       historical,
		ComplexityPenalty:     penalty,
		OverallConfidence:     overall,
		Level:                 model.LevelForConfidence(overall),
		Complexity:            complexity,
		Factors: []model.ConfidenceFactor{
			{Type: model.FactorImageQuality, Score: imageQuality,
				Rationale: fmt.Sprintf("mean overall image quality %.2f across both photos", imageQuality)},
			{Type: model.FactorModelReliability, Score: reliability,
				Rationale: fmt.Sprintf("model reliability %.2f for %s inspections", reliability, complexity)},
			{Type: model.FactorContextual, Score: contextual,
				Rationale: "capture environment adjustments applied to the 0.70 baseline"},
			{Type: model.FactorHistorical, Score: historical,
				Rationale: historicalRationale(history)},
			{Type: model.FactorComplexity, Score: 1 - penalty,
				Rationale: fmt.Sprintf("complexity penalty %.2f for %s tier", penalty, complexity)},
		},
	}
}

// CalculateFinal recomputes confidence after the vision result arrives. The
// observed defect report can move the complexity tier in either direction, so
// the score reflects actual difficulty rather than the a-priori guess.
func (s *Scorer) CalculateFinal(pre model.PreAnalysisResult, report *model.DefectReport, complexity model.Complexity, history model.ModelPerformanceHistory) model.EnhancedConfidenceScore {
	adjusted := adjustComplexity(pre, report, complexity)
	flags := inferFlags(pre)
	return s.Calculate(pre.ReferenceMetrics, pre.PartMetrics, adjusted, history, flags)
}

// adjustComplexity escalates to extreme when the result shows the task was
// much harder than expected, and relaxes one tier when a high-confidence
// pre-analysis was confirmed by a clean result.
func adjustComplexity(pre model.PreAnalysisResult, report *model.DefectReport, complexity model.Complexity) model.Complexity {
	if report == nil {
		return complexity
	}
	if report.CriticalDefects() >= 2 {
		return model.ComplexityExtreme
	}
	if len(report.Defects) > 5 && report.ConfidenceScore < 0.5 {
		return model.ComplexityExtreme
	}
	if pre.ExpectedConfidence >= 0.8 && report.IsClean() {
		return complexity.Relax()
	}
	return complexity
}

// inferFlags derives contextual flags from the measured image metrics for the
// post-call recomputation.
func inferFlags(pre model.PreAnalysisResult) model.ContextFlags {
	goodLight := func(m model.ImageQualityMetrics) bool {
		return m.Brightness >= 0.3 && m.Brightness <= 0.8
	}
	return model.ContextFlags{
		HasReferenceModel: true,
		GoodLighting:      goodLight(pre.ReferenceMetrics) && goodLight(pre.PartMetrics),
		StableEnvironment: pre.ReferenceMetrics.NoiseLevel < 0.4 && pre.PartMetrics.NoiseLevel < 0.4,
		BackgroundNoise:   pre.PartMetrics.ObjectCoverage < 0.3,
	}
}

// contextualScore starts at a 0.70 baseline and applies signed adjustments
// for each environment flag, clamped to [0,1].
func contextualScore(f model.ContextFlags) float64 {
	score := 0.7
	if f.HasReferenceModel {
		score += 0.15
	}
	if f.GoodLighting {
		score += 0.10
	}
	if f.StableEnvironment {
		score += 0.05
	}
	if f.ReflectiveSurfaces {
		score -= 0.10
	}
	if f.PoorAngle {
		score -= 0.15
	}
	if f.BackgroundNoise {
		score -= 0.05
	}
	return model.Clamp01(score)
}

// historicalScore blends lifetime success rate with recent accuracy, or
// returns a neutral 0.7 before any feedback exists.
func historicalScore(h model.ModelPerformanceHistory) float64 {
	if !h.HasData() {
		return 0.7
	}
	return model.Clamp01(0.4*h.SuccessRate() + 0.6*h.RecentAccuracy)
}

func historicalRationale(h model.ModelPerformanceHistory) string {
	if !h.HasData() {
		return "no historical data yet, using neutral baseline"
	}
	return fmt.Sprintf("based on %d analyses, %.0f%% successful, recent accuracy %.2f",
		h.TotalAnalyses, h.SuccessRate()*100, h.RecentAccuracy)
}

func (s *Scorer) lookup(table map[string]float64, c model.Complexity, fallback float64) float64 {
	if v, ok := table[string(c)]; ok {
		return v
	}
	return fallback
}
