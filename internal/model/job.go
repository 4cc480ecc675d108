package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// JobStatus is the batch job lifecycle state. Valid transitions:
// pending → processing → completed | failed. Terminal states are final.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PairItem is one unit of batch work: a reference/part photo pair.
type PairItem struct {
	ID         string     `json:"id"`
	PartType   string     `json:"part_type"`
	Complexity Complexity `json:"complexity,omitempty"`

	ReferencePath string `json:"reference_path"`
	PartPath      string `json:"part_path"`

	Context ContextFlags `json:"context,omitempty"`
}

// PairResult records the outcome of one item within a batch.
type PairResult struct {
	ItemID      string    `json:"item_id"`
	PartType    string    `json:"part_type"`
	Analysis    *Analysis `json:"analysis,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// Succeeded reports whether the item produced a completed analysis.
func (r PairResult) Succeeded() bool {
	return r.Error == "" && r.Analysis != nil && r.Analysis.Succeeded()
}

// ProgressUpdate is pushed to the observer after every completed item.
// Observers must tolerate out-of-order arrival within a chunk.
type ProgressUpdate struct {
	JobID          string    `json:"job_id"`
	ItemID         string    `json:"item_id"`
	CompletedPairs int       `json:"completed_pairs"`
	FailedPairs    int       `json:"failed_pairs"`
	TotalPairs     int       `json:"total_pairs"`
	At             time.Time `json:"at"`
}

// BatchJob is the full state of one batch run. Mutation happens only through
// the named transition methods, each returning a new snapshot; a terminal
// snapshot is immutable.
type BatchJob struct {
	ID             string               `json:"id"`
	Status         JobStatus            `json:"status"`
	Items          []PairItem           `json:"items"`
	Results        []PairResult         `json:"results,omitempty"`
	CompletedPairs int                  `json:"completed_pairs"`
	FailedPairs    int                  `json:"failed_pairs"`
	ErrorMessages  []string             `json:"error_messages,omitempty"`
	Overall        *BatchOverallAnalysis `json:"overall,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TotalPairs returns the number of work items in the job.
func (j BatchJob) TotalPairs() int {
	return len(j.Items)
}

// Start transitions pending → processing.
func (j BatchJob) Start(now time.Time) (BatchJob, error) {
	if j.Status != JobStatusPending {
		return j, eris.Errorf("job %s: cannot start from status %s", j.ID, j.Status)
	}
	next := j
	next.Status = JobStatusProcessing
	next.StartedAt = &now
	return next, nil
}

// RecordResult folds one item result into the job. This is the single point
// of synchronized mutation; callers serialize access.
func (j BatchJob) RecordResult(res PairResult) (BatchJob, error) {
	if j.Status != JobStatusProcessing {
		return j, eris.Errorf("job %s: cannot record result in status %s", j.ID, j.Status)
	}
	if j.CompletedPairs+j.FailedPairs >= j.TotalPairs() {
		return j, eris.Errorf("job %s: result overflow", j.ID)
	}
	next := j
	next.Results = append(append([]PairResult(nil), j.Results...), res)
	if res.Succeeded() {
		next.CompletedPairs++
	} else {
		next.FailedPairs++
		next.ErrorMessages = append(append([]string(nil), j.ErrorMessages...), res.ItemID+": "+res.failureMessage())
	}
	return next, nil
}

// failureMessage explains why an unsuccessful item produced no completed
// analysis. Gate rejections surface the gate's reason.
func (r PairResult) failureMessage() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Analysis != nil && r.Analysis.Status == AnalysisStatusRejected && r.Analysis.PreAnalysis != nil &&
		r.Analysis.PreAnalysis.Reason != "" {
		return "rejected by pre-analysis gate: " + r.Analysis.PreAnalysis.Reason
	}
	return "analysis incomplete"
}

// Complete transitions processing → completed and attaches the aggregate.
func (j BatchJob) Complete(overall *BatchOverallAnalysis, now time.Time) (BatchJob, error) {
	if j.Status != JobStatusProcessing {
		return j, eris.Errorf("job %s: cannot complete from status %s", j.ID, j.Status)
	}
	next := j
	next.Status = JobStatusCompleted
	next.Overall = overall
	next.FinishedAt = &now
	return next, nil
}

// Fail transitions processing → failed, retaining partial results.
func (j BatchJob) Fail(reason string, now time.Time) (BatchJob, error) {
	if j.Status.Terminal() {
		return j, eris.Errorf("job %s: cannot fail from status %s", j.ID, j.Status)
	}
	next := j
	next.Status = JobStatusFailed
	next.ErrorMessages = append(append([]string(nil), j.ErrorMessages...), reason)
	next.FinishedAt = &now
	return next, nil
}

// BatchStatus is the aggregate pass/fail verdict over a completed batch.
type BatchStatus string

const (
	BatchPass    BatchStatus = "pass"
	BatchWarning BatchStatus = "warning"
	BatchFail    BatchStatus = "fail"
)

// QualityTrend describes first-half vs second-half quality movement.
type QualityTrend string

const (
	TrendImproving QualityTrend = "improving"
	TrendStable    QualityTrend = "stable"
	TrendDeclining QualityTrend = "declining"
)

// PatternType tags a statistically notable subgroup effect.
type PatternType string

const (
	PatternPartTypeFailure PatternType = "part_type_failure"
)

// Pattern is a detected subgroup effect in a completed batch.
type Pattern struct {
	Type        PatternType `json:"type"`
	PartType    string      `json:"part_type,omitempty"`
	Description string      `json:"description"`
	FailureRate float64     `json:"failure_rate"`
	Confidence  float64     `json:"confidence"`
}

// BatchStatistics holds the numeric summary of a completed batch.
type BatchStatistics struct {
	TotalPairs        int     `json:"total_pairs"`
	CompletedPairs    int     `json:"completed_pairs"`
	FailedPairs       int     `json:"failed_pairs"`
	SuccessRate       float64 `json:"success_rate"`
	ErrorRate         float64 `json:"error_rate"`
	AvgConfidence     float64 `json:"avg_confidence"`
	WeightedConfidence float64 `json:"weighted_confidence"`
	AvgQualityScore   float64 `json:"avg_quality_score"`
	TokensSpent       int64   `json:"tokens_spent"`
	TokensSaved       int     `json:"tokens_saved"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
}

// BatchOverallAnalysis is the aggregate report computed once all items of a
// batch finish. Recomputing it from the same result list is idempotent.
type BatchOverallAnalysis struct {
	Status          BatchStatus            `json:"status"`
	Statistics      BatchStatistics        `json:"statistics"`
	Trend           QualityTrend           `json:"trend"`
	CriticalIssues  []string               `json:"critical_issues,omitempty"`
	Recommendations []ActionRecommendation `json:"recommendations,omitempty"`
	Patterns        []Pattern              `json:"patterns,omitempty"`
	ComputedAt      time.Time              `json:"computed_at"`
}
