package export

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/partsight/inspect-cli/internal/model"
)

// fakeSink records calls and optionally fails.
type fakeSink struct {
	mu     sync.Mutex
	name   string
	err    error
	jobIDs []string
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Export(_ context.Context, job *model.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobIDs = append(f.jobIDs, job.ID)
	return f.err
}

func completedJob() *model.BatchJob {
	return &model.BatchJob{
		ID:     "job-1",
		Status: model.JobStatusCompleted,
	}
}

func TestDispatch_AllSinksReceiveJob(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b"}
	d := NewDispatcher(a, b)

	d.Dispatch(context.Background(), completedJob())

	assert.Equal(t, []string{"job-1"}, a.jobIDs)
	assert.Equal(t, []string{"job-1"}, b.jobIDs)
}

func TestDispatch_FailingSinkDoesNotBlockOthers(t *testing.T) {
	broken := &fakeSink{name: "broken", err: eris.New("endpoint unreachable")}
	healthy := &fakeSink{name: "healthy"}
	d := NewDispatcher(broken, healthy)

	// Dispatch swallows sink errors; nothing panics or propagates.
	d.Dispatch(context.Background(), completedJob())

	assert.Len(t, broken.jobIDs, 1)
	assert.Len(t, healthy.jobIDs, 1)
}

func TestDispatch_NilJobIsNoop(t *testing.T) {
	sink := &fakeSink{name: "a"}
	d := NewDispatcher(sink)

	d.Dispatch(context.Background(), nil)
	assert.Empty(t, sink.jobIDs)
}

func TestDispatch_NoSinksIsNoop(t *testing.T) {
	d := NewDispatcher()
	d.Dispatch(context.Background(), completedJob())
}
