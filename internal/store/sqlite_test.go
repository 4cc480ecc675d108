package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/resilience"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "inspect.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_AnalysisRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	a := &model.Analysis{
		PartType:   "bracket",
		Status:     model.AnalysisStatusComplete,
		Complexity: model.ComplexityModerate,
		Report:     &model.DefectReport{OverallQuality: model.QualityPass, ConfidenceScore: 0.9},
		Confidence: &model.EnhancedConfidenceScore{OverallConfidence: 0.88},
		TokenUsage: model.TokenUsage{InputTokens: 1200, OutputTokens: 400},
		CostUSD:    0.0096,
	}
	require.NoError(t, st.SaveAnalysis(ctx, a))
	require.NotEmpty(t, a.ID)

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "bracket", got.PartType)
	assert.Equal(t, model.AnalysisStatusComplete, got.Status)
	require.NotNil(t, got.Report)
	assert.InDelta(t, 0.9, got.Report.ConfidenceScore, 0.0001)
	assert.Equal(t, int64(1600), got.TokenUsage.Total())
}

func TestSQLite_SaveAnalysisUpsert(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	a := &model.Analysis{ID: "a-1", Status: model.AnalysisStatusPending}
	require.NoError(t, st.SaveAnalysis(ctx, a))

	a.Status = model.AnalysisStatusComplete
	a.PartType = "housing"
	require.NoError(t, st.SaveAnalysis(ctx, a))

	got, err := st.GetAnalysis(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisStatusComplete, got.Status)
	assert.Equal(t, "housing", got.PartType)

	list, err := st.ListAnalyses(ctx, AnalysisFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_GetAnalysisNotFound(t *testing.T) {
	st := newTestSQLite(t)
	_, err := st.GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListAnalysesFilters(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	for _, a := range []*model.Analysis{
		{ID: "a-1", PartType: "bracket", Status: model.AnalysisStatusComplete},
		{ID: "a-2", PartType: "bracket", Status: model.AnalysisStatusRejected},
		{ID: "a-3", PartType: "housing", Status: model.AnalysisStatusComplete},
	} {
		require.NoError(t, st.SaveAnalysis(ctx, a))
	}

	byStatus, err := st.ListAnalyses(ctx, AnalysisFilter{Status: model.AnalysisStatusComplete})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byBoth, err := st.ListAnalyses(ctx, AnalysisFilter{
		Status:   model.AnalysisStatusComplete,
		PartType: "housing",
	})
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, "a-3", byBoth[0].ID)

	limited, err := st.ListAnalyses(ctx, AnalysisFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_SaveAnalysesBulk(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	analyses := []model.Analysis{
		{PartType: "bracket", Status: model.AnalysisStatusComplete},
		{PartType: "bracket", Status: model.AnalysisStatusComplete},
		{PartType: "housing", Status: model.AnalysisStatusRejected},
	}
	require.NoError(t, st.SaveAnalyses(ctx, analyses))

	list, err := st.ListAnalyses(ctx, AnalysisFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestSQLite_JobRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	job := model.BatchJob{
		ID:     "job-1",
		Status: model.JobStatusPending,
		Items: []model.PairItem{
			{ID: "i-1", ReferencePath: "ref.jpg", PartPath: "part.jpg"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveJob(ctx, job))

	// Upsert on transition.
	job.Status = model.JobStatusProcessing
	require.NoError(t, st.SaveJob(ctx, job))

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i-1", got.Items[0].ID)

	_, err = st.GetJob(ctx, "missing")
	assert.Error(t, err)
}

func TestSQLite_ListJobsByStatus(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	for _, job := range []model.BatchJob{
		{ID: "job-1", Status: model.JobStatusCompleted},
		{ID: "job-2", Status: model.JobStatusFailed},
		{ID: "job-3", Status: model.JobStatusCompleted},
	} {
		require.NoError(t, st.SaveJob(ctx, job))
	}

	completed, err := st.ListJobs(ctx, JobFilter{Status: model.JobStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	all, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_FeedbackList(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	for i, analysisID := range []string{"a-1", "a-1", "a-2"} {
		require.NoError(t, st.SaveFeedback(ctx, model.AnalysisFeedback{
			AnalysisID: analysisID,
			Type:       model.FeedbackPositive,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	forOne, err := st.ListFeedback(ctx, "a-1", 0)
	require.NoError(t, err)
	assert.Len(t, forOne, 2)

	all, err := st.ListFeedback(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLite_HistoryZeroValueThenRoundTrip(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	// No feedback yet: zero value, no error.
	h, err := st.GetHistory(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.TotalAnalyses)

	h = model.ModelPerformanceHistory{
		TotalAnalyses:      10,
		SuccessfulAnalyses: 8,
		RecentAccuracy:     0.9,
		LastUpdated:        time.Now().UTC(),
	}
	require.NoError(t, st.SaveHistory(ctx, h))

	// The singleton row upserts.
	h.TotalAnalyses = 11
	require.NoError(t, st.SaveHistory(ctx, h))

	got, err := st.GetHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, got.TotalAnalyses)
	assert.InDelta(t, 0.9, got.RecentAccuracy, 0.0001)
}

func TestSQLite_DLQLifecycle(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()

	now := time.Now().UTC()
	entries := []resilience.DLQEntry{
		{
			ID:    "dlq-1",
			JobID: "job-1",
			Item: model.PairItem{
				ID:            "i-1",
				PartType:      "bracket",
				ReferencePath: "ref.jpg",
				PartPath:      "part.jpg",
			},
			Error:        "image decode failed: truncated file",
			ErrorType:    "permanent",
			Attempts:     1,
			CreatedAt:    now,
			LastFailedAt: now,
		},
		{
			ID:           "dlq-2",
			JobID:        "job-2",
			Item:         model.PairItem{ID: "i-2", ReferencePath: "r.jpg", PartPath: "p.jpg"},
			Error:        "remote analysis failed (status 503): upstream",
			ErrorType:    "transient",
			Attempts:     3,
			CreatedAt:    now.Add(time.Second),
			LastFailedAt: now.Add(time.Second),
		},
	}
	for _, e := range entries {
		require.NoError(t, st.EnqueueDLQ(ctx, e))
	}

	count, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	forJob, err := st.ListDLQ(ctx, "job-1", 0)
	require.NoError(t, err)
	require.Len(t, forJob, 1)
	assert.Equal(t, "dlq-1", forJob[0].ID)
	assert.Equal(t, "permanent", forJob[0].ErrorType)
	assert.Equal(t, "bracket", forJob[0].Item.PartType)

	require.NoError(t, st.RemoveDLQ(ctx, "dlq-1"))

	count, err = st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_RemoveDLQNotFound(t *testing.T) {
	st := newTestSQLite(t)
	err := st.RemoveDLQ(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
