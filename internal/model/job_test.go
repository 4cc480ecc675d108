package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoItemJob() BatchJob {
	return BatchJob{
		ID:     "job-1",
		Status: JobStatusPending,
		Items: []PairItem{
			{ID: "i-1", ReferencePath: "ref1.jpg", PartPath: "part1.jpg"},
			{ID: "i-2", ReferencePath: "ref2.jpg", PartPath: "part2.jpg"},
		},
	}
}

func TestJobLifecycle(t *testing.T) {
	now := time.Now().UTC()
	job := twoItemJob()

	job, err := job.Start(now)
	require.NoError(t, err)
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)

	job, err = job.RecordResult(PairResult{
		ItemID:   "i-1",
		Analysis: &Analysis{Status: AnalysisStatusComplete},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, job.CompletedPairs)

	job, err = job.RecordResult(PairResult{ItemID: "i-2", Error: "boom"})
	require.NoError(t, err)
	assert.Equal(t, 1, job.FailedPairs)
	require.Len(t, job.ErrorMessages, 1)
	assert.Contains(t, job.ErrorMessages[0], "i-2")

	job, err = job.Complete(&BatchOverallAnalysis{Status: BatchWarning}, now)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.True(t, job.Status.Terminal())
	require.NotNil(t, job.FinishedAt)
}

func TestJobStart_OnlyFromPending(t *testing.T) {
	job := twoItemJob()
	job.Status = JobStatusProcessing
	_, err := job.Start(time.Now())
	assert.Error(t, err)
}

func TestJobRecordResult_RequiresProcessing(t *testing.T) {
	job := twoItemJob()
	_, err := job.RecordResult(PairResult{ItemID: "i-1"})
	assert.Error(t, err)
}

func TestJobRecordResult_Overflow(t *testing.T) {
	job := twoItemJob()
	job, err := job.Start(time.Now())
	require.NoError(t, err)

	for _, id := range []string{"i-1", "i-2"} {
		job, err = job.RecordResult(PairResult{ItemID: id, Error: "x"})
		require.NoError(t, err)
	}
	_, err = job.RecordResult(PairResult{ItemID: "i-3", Error: "x"})
	assert.Error(t, err)
}

func TestJobFail_TerminalIsFinal(t *testing.T) {
	job := twoItemJob()
	job, err := job.Start(time.Now())
	require.NoError(t, err)

	job, err = job.Fail("canceled", time.Now())
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, job.Status)

	_, err = job.Fail("again", time.Now())
	assert.Error(t, err)
}

func TestJobRecordResult_GateRejectionSurfacesReason(t *testing.T) {
	job := twoItemJob()
	job, err := job.Start(time.Now())
	require.NoError(t, err)

	job, err = job.RecordResult(PairResult{
		ItemID: "i-1",
		Analysis: &Analysis{
			Status:      AnalysisStatusRejected,
			PreAnalysis: &PreAnalysisResult{Reason: "both images below quality floor"},
		},
	})
	require.NoError(t, err)
	require.Len(t, job.ErrorMessages, 1)
	assert.Equal(t, "i-1: rejected by pre-analysis gate: both images below quality floor", job.ErrorMessages[0])

	// No reason available still records the generic message.
	job, err = job.RecordResult(PairResult{ItemID: "i-2"})
	require.NoError(t, err)
	require.Len(t, job.ErrorMessages, 2)
	assert.Equal(t, "i-2: analysis incomplete", job.ErrorMessages[1])
}

func TestPairResult_Succeeded(t *testing.T) {
	assert.True(t, PairResult{Analysis: &Analysis{Status: AnalysisStatusComplete}}.Succeeded())
	assert.False(t, PairResult{Error: "x", Analysis: &Analysis{Status: AnalysisStatusComplete}}.Succeeded())
	assert.False(t, PairResult{Analysis: &Analysis{Status: AnalysisStatusRejected}}.Succeeded())
	assert.False(t, PairResult{}.Succeeded())
}

func TestRecordResult_DoesNotMutateReceiver(t *testing.T) {
	job := twoItemJob()
	job, err := job.Start(time.Now())
	require.NoError(t, err)

	snapshot := job
	_, err = job.RecordResult(PairResult{ItemID: "i-1", Error: "x"})
	require.NoError(t, err)

	assert.Equal(t, 0, snapshot.FailedPairs)
	assert.Empty(t, snapshot.Results)
}
