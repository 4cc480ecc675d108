// Package export ships completed batch reports to external sinks. Export is
// fire-and-forget: sink failures are logged and never surface to the caller,
// so a broken webhook cannot fail a finished batch.
package export

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/partsight/inspect-cli/internal/model"
)

// Sink delivers one completed batch report somewhere external.
type Sink interface {
	Name() string
	Export(ctx context.Context, job *model.BatchJob) error
}

// maxConcurrentSinks bounds the dispatcher's fan-out.
const maxConcurrentSinks = 4

// Dispatcher fans a report out to all configured sinks.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher over the given sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: 30 * time.Second}
}

// Dispatch exports the job to every sink concurrently. Each sink gets its own
// timeout; failures are logged per sink and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, job *model.BatchJob) {
	if job == nil || len(d.sinks) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSinks)

	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			sinkCtx, cancel := context.WithTimeout(gctx, d.timeout)
			defer cancel()

			if err := sink.Export(sinkCtx, job); err != nil {
				zap.L().Warn("export: sink failed",
					zap.String("sink", sink.Name()),
					zap.String("job_id", job.ID),
					zap.Error(err),
				)
				return nil
			}
			zap.L().Info("export: sink delivered",
				zap.String("sink", sink.Name()),
				zap.String("job_id", job.ID),
			)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // sinks never return errors to the group
}
