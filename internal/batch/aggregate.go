package batch

import (
	"fmt"
	"sort"
	"time"

	"github.com/partsight/inspect-cli/internal/model"
)

const (
	batchPassThreshold    = 0.9
	batchWarningThreshold = 0.7

	trendBand     = 0.1
	trendMinItems = 3

	criticalFailRate  = 0.30
	criticalMinConf   = 0.60
	criticalErrorRate = 0.10

	partTypeFailureRate = 0.5
	patternConfidence   = 0.75
)

// Aggregate computes the overall analysis for a finished batch. It is a pure
// function of the job's results: recomputing over the same results yields the
// same report.
func Aggregate(job model.BatchJob, now time.Time) *model.BatchOverallAnalysis {
	stats := statistics(job)

	overall := &model.BatchOverallAnalysis{
		Status:     statusFor(stats),
		Statistics: stats,
		Trend:      trend(job.Results),
		ComputedAt: now.UTC(),
	}
	overall.CriticalIssues = criticalIssues(stats)
	overall.Patterns = partTypePatterns(job.Results)
	overall.Recommendations = batchRecommendations(stats, overall.Patterns)

	return overall
}

func statistics(job model.BatchJob) model.BatchStatistics {
	stats := model.BatchStatistics{
		TotalPairs:     job.TotalPairs(),
		CompletedPairs: job.CompletedPairs,
		FailedPairs:    job.FailedPairs,
	}
	if stats.TotalPairs > 0 {
		stats.SuccessRate = float64(stats.CompletedPairs) / float64(stats.TotalPairs)
		stats.ErrorRate = float64(stats.FailedPairs) / float64(stats.TotalPairs)
	}

	var confSum, weightedSum, weightSum, qualitySum float64
	var succeeded int
	for _, res := range job.Results {
		a := res.Analysis
		if a == nil {
			continue
		}

		stats.TokensSpent += a.TokenUsage.Total()
		stats.TotalCostUSD += a.CostUSD
		if a.PreAnalysis != nil {
			stats.TokensSaved += a.PreAnalysis.TokensSaved
		}

		if !res.Succeeded() || a.Confidence == nil {
			continue
		}
		succeeded++

		conf := a.Confidence.OverallConfidence
		weight := a.CombinedQualityScore()

		confSum += conf
		qualitySum += weight
		weightedSum += conf * weight
		weightSum += weight
	}

	if succeeded > 0 {
		stats.AvgConfidence = confSum / float64(succeeded)
		stats.AvgQualityScore = qualitySum / float64(succeeded)
		if weightSum > 0 {
			stats.WeightedConfidence = weightedSum / weightSum
		} else {
			stats.WeightedConfidence = stats.AvgConfidence
		}
	}

	return stats
}

// statusFor bands the success rate. Weighted confidence stays a reported
// statistic; a batch with no completed items has rate zero and fails.
func statusFor(stats model.BatchStatistics) model.BatchStatus {
	switch {
	case stats.SuccessRate >= batchPassThreshold:
		return model.BatchPass
	case stats.SuccessRate >= batchWarningThreshold:
		return model.BatchWarning
	default:
		return model.BatchFail
	}
}

// trend compares mean combined quality of the first half of successful items
// against the second half, in completion order. Fewer than trendMinItems
// successful items reads as stable.
func trend(results []model.PairResult) model.QualityTrend {
	var scores []float64
	for _, res := range results {
		if res.Succeeded() {
			scores = append(scores, res.Analysis.CombinedQualityScore())
		}
	}

	if len(scores) < trendMinItems {
		return model.TrendStable
	}
	half := len(scores) / 2

	firstMean := mean(scores[:half])
	secondMean := mean(scores[len(scores)-half:])

	switch {
	case secondMean-firstMean > trendBand:
		return model.TrendImproving
	case firstMean-secondMean > trendBand:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func criticalIssues(stats model.BatchStatistics) []string {
	var issues []string
	if stats.ErrorRate > criticalErrorRate {
		issues = append(issues, fmt.Sprintf("error rate %.0f%% exceeds %.0f%% threshold",
			stats.ErrorRate*100, criticalErrorRate*100))
	}
	failRate := 0.0
	if stats.TotalPairs > 0 {
		failRate = float64(stats.FailedPairs) / float64(stats.TotalPairs)
	}
	if failRate > criticalFailRate {
		issues = append(issues, fmt.Sprintf("failure rate %.0f%% exceeds %.0f%% threshold",
			failRate*100, criticalFailRate*100))
	}
	if stats.CompletedPairs > 0 && stats.AvgConfidence < criticalMinConf {
		issues = append(issues, fmt.Sprintf("average confidence %.0f%% below %.0f%% threshold",
			stats.AvgConfidence*100, criticalMinConf*100))
	}
	return issues
}

// partTypePatterns flags part types whose failure rate exceeds half of their
// own subtotal. Iteration over the map is sorted so output order is stable.
func partTypePatterns(results []model.PairResult) []model.Pattern {
	type subtotal struct {
		total  int
		failed int
	}
	byType := make(map[string]*subtotal)
	for _, res := range results {
		pt := res.PartType
		if pt == "" {
			pt = "unknown"
		}
		st, ok := byType[pt]
		if !ok {
			st = &subtotal{}
			byType[pt] = st
		}
		st.total++
		if !res.Succeeded() {
			st.failed++
		}
	}

	partTypes := make([]string, 0, len(byType))
	for pt := range byType {
		partTypes = append(partTypes, pt)
	}
	sort.Strings(partTypes)

	var patterns []model.Pattern
	for _, pt := range partTypes {
		st := byType[pt]
		failureRate := float64(st.failed) / float64(st.total)
		if failureRate <= partTypeFailureRate {
			continue
		}
		patterns = append(patterns, model.Pattern{
			Type:     model.PatternPartTypeFailure,
			PartType: pt,
			Description: fmt.Sprintf("part type %q failed %d of %d pairs (%.0f%%)",
				pt, st.failed, st.total, failureRate*100),
			FailureRate: failureRate,
			Confidence:  patternConfidence,
		})
	}
	return patterns
}

func batchRecommendations(stats model.BatchStatistics, patterns []model.Pattern) []model.ActionRecommendation {
	var recs []model.ActionRecommendation

	if stats.TotalPairs > 0 && float64(stats.FailedPairs)/float64(stats.TotalPairs) > criticalFailRate {
		recs = append(recs, model.ActionRecommendation{
			Category: "batch_failures",
			Priority: model.PriorityCritical,
			Title:    "Review capture process before the next batch",
			Steps: []model.RecommendationStep{
				{Order: 1, Instruction: "Inspect the error messages for the failed pairs"},
				{Order: 2, Instruction: "Re-photograph rejected pairs following the per-item recommendations"},
				{Order: 3, Instruction: "Re-queue dead-lettered items once conditions are fixed"},
			},
			EstimatedMins: 30,
			Improvement:   model.EstimatedImprovement{SuccessProbability: 0.8},
		})
	}

	for _, p := range patterns {
		recs = append(recs, model.ActionRecommendation{
			Category: "part_type_" + p.PartType,
			Priority: model.PriorityHigh,
			Title:    fmt.Sprintf("Audit capture setup for part type %q", p.PartType),
			Steps: []model.RecommendationStep{
				{Order: 1, Instruction: "Compare failed photos of this part type against a passing example"},
				{Order: 2, Instruction: "Adjust fixturing or lighting specific to this geometry"},
			},
			EstimatedMins: 20,
			Improvement:   model.EstimatedImprovement{SuccessProbability: p.Confidence},
		})
	}

	if stats.CompletedPairs > 0 && stats.AvgConfidence < criticalMinConf {
		recs = append(recs, model.ActionRecommendation{
			Category: "batch_confidence",
			Priority: model.PriorityHigh,
			Title:    "Treat this batch's verdicts as provisional",
			Steps: []model.RecommendationStep{
				{Order: 1, Instruction: "Route low-confidence analyses to human review"},
				{Order: 2, Instruction: "Collect feedback on reviewed items to recalibrate the model history"},
			},
			EstimatedMins: 15,
			Improvement:   model.EstimatedImprovement{ConfidenceDelta: 0.1},
		})
	}

	return recs
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
