// Package pipeline runs a single photo pair end to end: quality metrics, the
// pre-analysis gate, the vision call, confidence calibration, and
// recommendations. The batch orchestrator and the CLI both build on it.
package pipeline

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/confidence"
	"github.com/partsight/inspect-cli/internal/cost"
	"github.com/partsight/inspect-cli/internal/gate"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/quality"
	"github.com/partsight/inspect-cli/internal/recommend"
	"github.com/partsight/inspect-cli/internal/resilience"
	"github.com/partsight/inspect-cli/internal/store"
	"github.com/partsight/inspect-cli/pkg/vision"
)

// HistoryProvider supplies the rolling model performance history read by the
// confidence scorer. Satisfied by *feedback.Loop.
type HistoryProvider interface {
	History(ctx context.Context) (model.ModelPerformanceHistory, error)
}

// Pipeline wires the analysis stages together.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	vision    vision.Client
	analyzer  *quality.Analyzer
	gate      *gate.Engine
	scorer    *confidence.Scorer
	recommend *recommend.Engine
	costCalc  *cost.Calculator
	history   HistoryProvider
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, vc vision.Client, history HistoryProvider) *Pipeline {
	calc := cost.NewCalculator(cost.DefaultRates())

	ratePerSec := cfg.Vision.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 1.0
	}

	return &Pipeline{
		cfg:       cfg,
		store:     st,
		vision:    vc,
		analyzer:  quality.NewAnalyzer(cfg.Quality),
		gate:      gate.NewEngine(cfg.Gate, cfg.Vision.Model, calc),
		scorer:    confidence.NewScorer(cfg.Confidence),
		recommend: recommend.NewEngine(),
		costCalc:  calc,
		history:   history,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			ShouldTrip: resilience.IsTransient,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("pipeline: vision circuit state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// Request is one pair analysis request.
type Request struct {
	ReferencePath string
	PartPath      string
	PartType      string
	Complexity    model.Complexity
	Context       model.ContextFlags
}

// AnalyzePair runs one analysis attempt for a photo pair and persists the
// resulting record. Retry policy belongs to the caller: the batch orchestrator
// and the CLI wrap this call with their own retry configs.
func (p *Pipeline) AnalyzePair(ctx context.Context, req Request) (*model.Analysis, error) {
	log := zap.L().With(zap.String("part_type", req.PartType))

	complexity := req.Complexity
	if complexity == "" {
		complexity = model.ComplexityModerate
	}

	refData, err := os.ReadFile(req.ReferencePath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read reference %s", req.ReferencePath)
	}
	partData, err := os.ReadFile(req.PartPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read part %s", req.PartPath)
	}

	refMetrics, err := p.analyzer.Analyze(refData)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: analyze reference image")
	}
	partMetrics, err := p.analyzer.Analyze(partData)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: analyze part image")
	}

	pre := p.gate.Decide(refMetrics, partMetrics)

	analysis := &model.Analysis{
		ID:          uuid.New().String(),
		PartType:    req.PartType,
		Status:      model.AnalysisStatusPending,
		Complexity:  complexity,
		PreAnalysis: &pre,
	}

	hist, err := p.history.History(ctx)
	if err != nil {
		log.Warn("pipeline: history unavailable, using empty baseline", zap.Error(err))
		hist = model.ModelPerformanceHistory{}
	}

	if !pre.Decision.Proceeds() {
		// Gate blocked the vision call. Confidence comes from the pre-call
		// estimate; recommendations explain what to fix before retaking.
		score := p.scorer.Calculate(refMetrics, partMetrics, complexity, hist, req.Context).
			WithOverallConfidence(pre.ExpectedConfidence)

		analysis.Status = model.AnalysisStatusRejected
		analysis.Confidence = &score
		analysis.Recommendations = p.recommend.Recommend(refMetrics, partMetrics, score, &pre, nil)

		if err := p.store.SaveAnalysis(ctx, analysis); err != nil {
			return nil, eris.Wrap(err, "pipeline: save rejected analysis")
		}

		log.Info("pipeline: gate blocked vision call",
			zap.String("decision", string(pre.Decision)),
			zap.Int("tokens_saved", pre.TokensSaved),
			zap.Float64("savings_usd", pre.SavingsUSD),
		)
		return analysis, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "pipeline: rate limit wait")
	}

	report, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*model.DefectReport, error) {
		r, u, callErr := p.vision.AnalyzeImages(ctx, refData, partData, req.PartType)
		analysis.TokenUsage.Add(u)
		return r, callErr
	})
	if err != nil {
		analysis.Status = model.AnalysisStatusFailed
		analysis.ErrorMessage = err.Error()
		if saveErr := p.store.SaveAnalysis(ctx, analysis); saveErr != nil {
			log.Warn("pipeline: save failed analysis", zap.Error(saveErr))
		}
		return nil, eris.Wrap(err, "pipeline: vision analysis")
	}

	score := p.scorer.CalculateFinal(pre, report, complexity, hist)

	analysis.Status = model.AnalysisStatusComplete
	analysis.Report = report
	analysis.Confidence = &score
	analysis.Recommendations = p.recommend.Recommend(refMetrics, partMetrics, score, &pre, report)
	analysis.CostUSD = p.costCalc.Call(p.cfg.Vision.Model, analysis.TokenUsage.InputTokens, analysis.TokenUsage.OutputTokens)

	if err := p.store.SaveAnalysis(ctx, analysis); err != nil {
		return nil, eris.Wrap(err, "pipeline: save analysis")
	}

	log.Info("pipeline: analysis complete",
		zap.String("analysis_id", analysis.ID),
		zap.String("overall", string(report.OverallQuality)),
		zap.Float64("confidence", score.OverallConfidence),
		zap.Int64("tokens", analysis.TokenUsage.Total()),
		zap.Float64("cost_usd", analysis.CostUSD),
	)

	return analysis, nil
}

// BreakerState exposes the vision circuit state for monitoring.
func (p *Pipeline) BreakerState() resilience.CircuitState {
	return p.breaker.State()
}
