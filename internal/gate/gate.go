// Package gate implements the pre-analysis quality gate: it decides whether a
// photo pair is worth a paid vision call and accounts for tokens saved.
package gate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/cost"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/quality"
)

// Engine evaluates photo pairs against configurable decision thresholds.
type Engine struct {
	cfg      config.GateConfig
	model    string
	costCalc *cost.Calculator
}

// NewEngine creates a decision engine. The model name is used only to price
// token savings for reporting.
func NewEngine(cfg config.GateConfig, visionModel string, calc *cost.Calculator) *Engine {
	return &Engine{cfg: cfg, model: visionModel, costCalc: calc}
}

// Decide applies the gate rules in order; the first match wins. The four
// score bands are contiguous and non-overlapping, so every input pair maps
// to exactly one decision.
func (e *Engine) Decide(ref, part model.ImageQualityMetrics) model.PreAnalysisResult {
	issues := append(quality.Issues(ref), quality.Issues(part)...)
	criticalCount := model.CountCritical(issues)

	minScore := math.Min(ref.OverallScore, part.OverallScore)
	avgScore := (ref.OverallScore + part.OverallScore) / 2

	res := model.PreAnalysisResult{
		ReferenceMetrics: ref,
		PartMetrics:      part,
		Issues:           issues,
	}

	switch {
	case minScore < e.cfg.RejectThreshold || criticalCount >= 2:
		res.Decision = model.DecisionRejectAndRetake
		res.ExpectedConfidence = 0
		res.TokensSaved = e.cfg.FullCallTokens
		res.Reason = fmt.Sprintf("quality too low to analyze (min score %.2f, %d critical issues)", minScore, criticalCount)
	case minScore < e.cfg.OptimizeThreshold:
		res.Decision = model.DecisionOptimizeFirst
		res.ExpectedConfidence = model.Clamp01(minScore * 0.7)
		res.TokensSaved = e.cfg.PartialSaveTokens
		res.Reason = fmt.Sprintf("capture conditions should be improved first (min score %.2f)", minScore)
	case avgScore < e.cfg.WarningThreshold:
		res.Decision = model.DecisionProceedWithWarning
		res.ExpectedConfidence = model.Clamp01(avgScore * 0.85)
		res.Reason = fmt.Sprintf("proceeding with reduced expected confidence (avg score %.2f)", avgScore)
	default:
		res.Decision = model.DecisionProceed
		res.ExpectedConfidence = model.Clamp01(avgScore * 0.95)
		res.Reason = fmt.Sprintf("both images are good quality (avg score %.2f)", avgScore)
	}

	if res.TokensSaved > 0 && e.costCalc != nil {
		res.SavingsUSD = e.costCalc.Savings(e.model, res.TokensSaved)
	}

	zap.L().Debug("gate: decision",
		zap.String("decision", string(res.Decision)),
		zap.Float64("min_score", minScore),
		zap.Float64("avg_score", avgScore),
		zap.Int("critical_issues", criticalCount),
		zap.Int("tokens_saved", res.TokensSaved),
	)

	return res
}
