// Package recommend maps quality issues and weak confidence factors to
// prioritized, deduplicated remediation recommendations.
package recommend

import (
	"sort"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/quality"
)

// maxRecommendations caps the list shown to the operator.
const maxRecommendations = 5

// factorThreshold is the score below which a confidence factor contributes a
// recommendation.
const factorThreshold = 0.6

// Engine generates ActionRecommendations from analysis outputs.
type Engine struct{}

// NewEngine creates a recommendation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Recommend builds the prioritized recommendation list for one analysis.
// pre and report may be nil for single-image flows. Output is sorted by
// priority descending, deduplicated by category (higher priority wins), and
// capped at five entries.
func (e *Engine) Recommend(ref, part model.ImageQualityMetrics, score model.EnhancedConfidenceScore, pre *model.PreAnalysisResult, report *model.DefectReport) []model.ActionRecommendation {
	var recs []model.ActionRecommendation

	var issues []model.QualityIssue
	if pre != nil {
		issues = pre.Issues
	} else {
		issues = append(quality.Issues(ref), quality.Issues(part)...)
	}
	for _, issue := range issues {
		recs = append(recs, issueRecommendation(issue))
	}

	for _, f := range score.Factors {
		if f.Score >= factorThreshold {
			continue
		}
		if r, ok := factorRecommendation(f); ok {
			recs = append(recs, r)
		}
	}

	if report != nil && report.CriticalDefects() > 0 {
		recs = append(recs, model.ActionRecommendation{
			Category: "critical_defects",
			Priority: model.PriorityCritical,
			Title:    "Quarantine the part for manual inspection",
			Steps: []model.RecommendationStep{
				{Order: 1, Instruction: "remove the part from the production flow"},
				{Order: 2, Instruction: "confirm the reported defects by hand"},
				{Order: 3, Instruction: "record the disposition in the quality log"},
			},
			EstimatedMins: 15,
			Improvement:   model.EstimatedImprovement{SuccessProbability: 0.95},
		})
	}

	recs = dedupe(recs)
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// dedupe keeps one recommendation per category, preferring higher priority.
func dedupe(recs []model.ActionRecommendation) []model.ActionRecommendation {
	best := make(map[string]model.ActionRecommendation)
	var order []string
	for _, r := range recs {
		cur, seen := best[r.Category]
		if !seen {
			best[r.Category] = r
			order = append(order, r.Category)
			continue
		}
		if r.Priority.Rank() > cur.Priority.Rank() {
			best[r.Category] = r
		}
	}
	out := make([]model.ActionRecommendation, 0, len(order))
	for _, cat := range order {
		out = append(out, best[cat])
	}
	return out
}

// issueRecommendation is the static mapping from issue type to a remediation
// template.
func issueRecommendation(issue model.QualityIssue) model.ActionRecommendation {
	priority := priorityForSeverity(issue.Severity)

	switch issue.Type {
	case model.IssueBlur:
		return model.ActionRecommendation{
			Category: "retake_focus", Priority: priority,
			Title: "Retake with better focus",
			Steps: steps(
				"stabilize the camera against a surface or tripod",
				"tap the part on screen to lock focus",
				"wait for the focus indicator before capturing",
			),
			EstimatedMins: 2,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.3, ConfidenceDelta: 0.2, SuccessProbability: 0.85},
		}
	case model.IssueLighting:
		return model.ActionRecommendation{
			Category: "improve_lighting", Priority: priority,
			Title: "Improve lighting conditions",
			Steps: steps(
				"move to diffuse, even lighting",
				"eliminate glare and hard shadows on the part",
			),
			EstimatedMins: 5,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.25, ConfidenceDelta: 0.15, SuccessProbability: 0.8},
		}
	case model.IssueContrast:
		return model.ActionRecommendation{
			Category: "improve_contrast", Priority: priority,
			Title: "Increase subject contrast",
			Steps: steps(
				"place the part on a contrasting background",
				"add side lighting to bring out surface texture",
			),
			EstimatedMins: 3,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.2, ConfidenceDelta: 0.1, SuccessProbability: 0.75},
		}
	case model.IssueNoise:
		return model.ActionRecommendation{
			Category: "reduce_noise", Priority: priority,
			Title: "Reduce image noise",
			Steps: steps(
				"add light so the camera can lower its ISO",
				"avoid digital zoom and low-light capture",
			),
			EstimatedMins: 3,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.2, ConfidenceDelta: 0.1, SuccessProbability: 0.7},
		}
	case model.IssueResolution:
		return model.ActionRecommendation{
			Category: "increase_resolution", Priority: priority,
			Title: "Capture at higher resolution",
			Steps: steps(
				"set the camera to its full resolution",
				"move closer instead of cropping the photo",
			),
			EstimatedMins: 1,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.3, ConfidenceDelta: 0.2, SuccessProbability: 0.9},
		}
	default: // object size
		return model.ActionRecommendation{
			Category: "frame_subject", Priority: priority,
			Title: "Fill the frame with the part",
			Steps: steps(
				"move closer so the part fills most of the frame",
				"keep the whole part inside the viewfinder",
			),
			EstimatedMins: 1,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.25, ConfidenceDelta: 0.15, SuccessProbability: 0.85},
		}
	}
}

// factorRecommendation maps one weak confidence factor to at most one
// recommendation. Model reliability and history are outside the operator's
// control, so those stay informational.
func factorRecommendation(f model.ConfidenceFactor) (model.ActionRecommendation, bool) {
	switch f.Type {
	case model.FactorImageQuality:
		return model.ActionRecommendation{
			Category: "retake_both", Priority: model.PriorityHigh,
			Title: "Retake both photos with better technique",
			Steps: steps(
				"review the per-image quality issues above",
				"retake the reference and part photos under the same conditions",
			),
			EstimatedMins: 5,
			Improvement:   model.EstimatedImprovement{QualityDelta: 0.3, ConfidenceDelta: 0.25, SuccessProbability: 0.8},
		}, true
	case model.FactorContextual:
		return model.ActionRecommendation{
			Category: "improve_environment", Priority: model.PriorityMedium,
			Title: "Improve the capture environment",
			Steps: steps(
				"use a stable, glare-free surface",
				"keep the background clear of clutter",
			),
			EstimatedMins: 5,
			Improvement:   model.EstimatedImprovement{ConfidenceDelta: 0.15, SuccessProbability: 0.7},
		}, true
	case model.FactorComplexity:
		return model.ActionRecommendation{
			Category: "simplify_task", Priority: model.PriorityMedium,
			Title: "Break the inspection into simpler views",
			Steps: steps(
				"capture separate photos per inspection zone",
				"analyze each zone as its own pair",
			),
			EstimatedMins: 10,
			Improvement:   model.EstimatedImprovement{ConfidenceDelta: 0.2, SuccessProbability: 0.65},
		}, true
	case model.FactorModelReliability:
		return model.ActionRecommendation{
			Category: "model_reliability_note", Priority: model.PriorityLow,
			Title: "Model reliability is limited for this task tier",
			Steps: steps(
				"treat results as advisory until confirmed by a human",
			),
			Informational: true,
			Improvement:   model.EstimatedImprovement{SuccessProbability: 0.5},
		}, true
	case model.FactorHistorical:
		return model.ActionRecommendation{
			Category: "historical_note", Priority: model.PriorityLow,
			Title: "Recent accuracy has been below average",
			Steps: steps(
				"spot-check a sample of results manually and submit feedback",
			),
			Informational: true,
			Improvement:   model.EstimatedImprovement{SuccessProbability: 0.5},
		}, true
	}
	return model.ActionRecommendation{}, false
}

func priorityForSeverity(s model.Severity) model.Priority {
	switch s {
	case model.SeverityCritical:
		return model.PriorityCritical
	case model.SeverityMajor:
		return model.PriorityHigh
	default:
		return model.PriorityMedium
	}
}

func steps(instructions ...string) []model.RecommendationStep {
	out := make([]model.RecommendationStep, len(instructions))
	for i, ins := range instructions {
		out[i] = model.RecommendationStep{Order: i + 1, Instruction: ins}
	}
	return out
}
