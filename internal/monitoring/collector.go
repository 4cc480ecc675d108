// Package monitoring gathers health metrics over stored analyses, jobs, and
// feedback, and raises webhook alerts when thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Analysis metrics (within lookback window).
	AnalysesTotal    int     `json:"analyses_total"`
	AnalysesComplete int     `json:"analyses_complete"`
	AnalysesRejected int     `json:"analyses_rejected"`
	AnalysesFailed   int     `json:"analyses_failed"`
	FailRate         float64 `json:"fail_rate"`
	AvgConfidence    float64 `json:"avg_confidence"`
	AvgQualityScore  float64 `json:"avg_quality_score"`
	TokensSpent      int64   `json:"tokens_spent"`
	TokensSaved      int     `json:"tokens_saved"`
	TotalCostUSD     float64 `json:"total_cost_usd"`

	// Batch job metrics.
	JobsTotal     int `json:"jobs_total"`
	JobsCompleted int `json:"jobs_completed"`
	JobsFailed    int `json:"jobs_failed"`

	// Calibration: mean |reported - actual| over recent feedback.
	CalibrationDrift float64 `json:"calibration_drift"`
	FeedbackCount    int     `json:"feedback_count"`

	// DLQ depth.
	DLQDepth int `json:"dlq_depth"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	analyses, err := c.store.ListAnalyses(ctx, store.AnalysisFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list analyses")
	}

	var confSum, qualitySum float64
	var scored int
	for _, a := range analyses {
		if a.CreatedAt.Before(cutoff) {
			continue
		}
		snap.AnalysesTotal++
		switch a.Status {
		case model.AnalysisStatusComplete:
			snap.AnalysesComplete++
		case model.AnalysisStatusRejected:
			snap.AnalysesRejected++
		case model.AnalysisStatusFailed:
			snap.AnalysesFailed++
		}

		snap.TokensSpent += a.TokenUsage.Total()
		snap.TotalCostUSD += a.CostUSD
		if a.PreAnalysis != nil {
			snap.TokensSaved += a.PreAnalysis.TokensSaved
		}
		if a.Succeeded() && a.Confidence != nil {
			confSum += a.Confidence.OverallConfidence
			qualitySum += a.CombinedQualityScore()
			scored++
		}
	}
	if snap.AnalysesTotal > 0 {
		snap.FailRate = float64(snap.AnalysesFailed) / float64(snap.AnalysesTotal)
	}
	if scored > 0 {
		snap.AvgConfidence = confSum / float64(scored)
		snap.AvgQualityScore = qualitySum / float64(scored)
	}

	jobs, err := c.store.ListJobs(ctx, store.JobFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list jobs")
	}
	for _, j := range jobs {
		if j.CreatedAt.Before(cutoff) {
			continue
		}
		snap.JobsTotal++
		switch j.Status {
		case model.JobStatusCompleted:
			snap.JobsCompleted++
		case model.JobStatusFailed:
			snap.JobsFailed++
		}
	}

	feedback, err := c.store.ListFeedback(ctx, "", 1000)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list feedback")
	}
	var deviationSum float64
	for _, fb := range feedback {
		if fb.CreatedAt.Before(cutoff) {
			continue
		}
		snap.FeedbackCount++
		deviationSum += fb.Validation.Deviation
	}
	if snap.FeedbackCount > 0 {
		snap.CalibrationDrift = deviationSum / float64(snap.FeedbackCount)
	}

	snap.DLQDepth, err = c.store.CountDLQ(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count dlq")
	}

	return snap, nil
}
