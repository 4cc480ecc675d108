package store

import (
	"context"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/resilience"
)

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Status   model.AnalysisStatus `json:"status,omitempty"`
	PartType string               `json:"part_type,omitempty"`
	Limit    int                  `json:"limit,omitempty"`
	Offset   int                  `json:"offset,omitempty"`
}

// JobFilter specifies criteria for listing batch jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the inspection engine.
type Store interface {
	// Analyses. SaveAnalyses bulk-inserts the completed analyses of a batch.
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	SaveAnalyses(ctx context.Context, analyses []model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	// Batch jobs. SaveJob upserts the full snapshot; the orchestrator calls
	// it after every state transition so a crash loses at most one item.
	SaveJob(ctx context.Context, job model.BatchJob) error
	GetJob(ctx context.Context, id string) (*model.BatchJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.BatchJob, error)

	// Feedback and model performance history
	SaveFeedback(ctx context.Context, fb model.AnalysisFeedback) error
	ListFeedback(ctx context.Context, analysisID string, limit int) ([]model.AnalysisFeedback, error)
	GetHistory(ctx context.Context) (model.ModelPerformanceHistory, error)
	SaveHistory(ctx context.Context, h model.ModelPerformanceHistory) error

	// Dead letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	ListDLQ(ctx context.Context, jobID string, limit int) ([]resilience.DLQEntry, error)
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
