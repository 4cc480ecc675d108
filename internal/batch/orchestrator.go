// Package batch orchestrates multi-pair inspection jobs: chunked concurrency,
// per-item retries with isolation, progress reporting, and aggregate analysis.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/partsight/inspect-cli/internal/config"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/pipeline"
	"github.com/partsight/inspect-cli/internal/resilience"
	"github.com/partsight/inspect-cli/internal/store"
)

// Runner executes one analysis attempt for a photo pair. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	AnalyzePair(ctx context.Context, req pipeline.Request) (*model.Analysis, error)
}

// Orchestrator runs batch jobs. One item failing never aborts the batch; the
// failure is recorded and the remaining items continue.
type Orchestrator struct {
	cfg      config.BatchConfig
	store    store.Store
	runner   Runner
	progress func(model.ProgressUpdate)

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewOrchestrator creates an Orchestrator. The progress callback may be nil;
// when set it receives one update per completed item.
func NewOrchestrator(cfg config.BatchConfig, st store.Store, runner Runner, progress func(model.ProgressUpdate)) *Orchestrator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 3
	}
	if cfg.ItemTimeoutSecs <= 0 {
		cfg.ItemTimeoutSecs = 180
	}
	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		runner:   runner,
		progress: progress,
		nowFunc:  time.Now,
	}
}

// Run executes all items in chunks and returns the terminal job snapshot.
// Cancelling ctx stops scheduling of not-yet-started chunks; items already
// in flight run to completion of their current attempt.
func (o *Orchestrator) Run(ctx context.Context, items []model.PairItem) (*model.BatchJob, error) {
	if len(items) == 0 {
		return nil, eris.New("batch: no items to process")
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.New().String()
		}
	}

	job := model.BatchJob{
		ID:        uuid.New().String(),
		Status:    model.JobStatusPending,
		Items:     items,
		CreatedAt: o.nowFunc().UTC(),
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "batch: persist new job")
	}

	job, err := job.Start(o.nowFunc().UTC())
	if err != nil {
		return nil, err
	}
	if err := o.store.SaveJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "batch: persist job start")
	}

	log := zap.L().With(zap.String("job_id", job.ID))
	log.Info("batch: starting",
		zap.Int("total_pairs", job.TotalPairs()),
		zap.Int("chunk_size", o.cfg.ChunkSize),
	)

	// Results fold into the job snapshot under a single mutex; SaveJob after
	// each item bounds loss on crash to one item.
	var mu sync.Mutex
	record := func(res model.PairResult) {
		mu.Lock()
		defer mu.Unlock()

		next, recErr := job.RecordResult(res)
		if recErr != nil {
			log.Error("batch: record result", zap.Error(recErr))
			return
		}
		job = next

		if err := o.store.SaveJob(ctx, job); err != nil {
			log.Warn("batch: persist progress", zap.Error(err))
		}
		if o.progress != nil {
			o.progress(model.ProgressUpdate{
				JobID:          job.ID,
				ItemID:         res.ItemID,
				CompletedPairs: job.CompletedPairs,
				FailedPairs:    job.FailedPairs,
				TotalPairs:     job.TotalPairs(),
				At:             res.CompletedAt,
			})
		}
	}

	// The pacer's initial token lets the first chunk start immediately; later
	// chunks wait for the refill interval.
	delay := time.Duration(o.cfg.InterChunkDelaySecs) * time.Second
	var pacer *rate.Limiter
	if delay > 0 {
		pacer = rate.NewLimiter(rate.Every(delay), 1)
	}

	canceled := false
	for start := 0; start < len(items); start += o.cfg.ChunkSize {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		if pacer != nil {
			if err := pacer.Wait(ctx); err != nil {
				canceled = true
				break
			}
		}

		end := min(start+o.cfg.ChunkSize, len(items))
		chunk := items[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range chunk {
			item := item
			g.Go(func() error {
				record(o.processItem(gctx, job.ID, item))
				return nil
			})
		}
		g.Wait() //nolint:errcheck // item errors are folded into results
	}

	now := o.nowFunc().UTC()
	if canceled && job.CompletedPairs+job.FailedPairs < job.TotalPairs() {
		failed, failErr := job.Fail("canceled before all chunks were scheduled", now)
		if failErr != nil {
			return nil, failErr
		}
		job = failed
	} else {
		overall := Aggregate(job, now)
		completed, compErr := job.Complete(overall, now)
		if compErr != nil {
			return nil, compErr
		}
		job = completed
	}

	if err := o.store.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		return nil, eris.Wrap(err, "batch: persist terminal job")
	}

	log.Info("batch: finished",
		zap.String("status", string(job.Status)),
		zap.Int("completed", job.CompletedPairs),
		zap.Int("failed", job.FailedPairs),
	)
	return &job, nil
}

// processItem runs one pair with the per-item retry policy. Each attempt gets
// its own timeout context. Exhausted items land in the dead letter queue.
func (o *Orchestrator) processItem(ctx context.Context, jobID string, item model.PairItem) model.PairResult {
	itemTimeout := time.Duration(o.cfg.ItemTimeoutSecs) * time.Second

	attempts := 0
	retryCfg := resilience.BatchItemRetryConfig(o.cfg.MaxRetries)
	retryCfg.OnRetry = resilience.RetryLogger("batch", "analyze_pair")

	analysis, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.Analysis, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, itemTimeout)
		defer cancel()

		return o.runner.AnalyzePair(attemptCtx, pipeline.Request{
			ReferencePath: item.ReferencePath,
			PartPath:      item.PartPath,
			PartType:      item.PartType,
			Complexity:    item.Complexity,
			Context:       item.Context,
		})
	})

	res := model.PairResult{
		ItemID:      item.ID,
		PartType:    item.PartType,
		Attempts:    attempts,
		CompletedAt: o.nowFunc().UTC(),
	}
	if err != nil {
		res.Error = err.Error()
		o.deadLetter(ctx, jobID, item, err, attempts)
		return res
	}
	res.Analysis = analysis
	return res
}

func (o *Orchestrator) deadLetter(ctx context.Context, jobID string, item model.PairItem, cause error, attempts int) {
	now := o.nowFunc().UTC()
	entry := resilience.DLQEntry{
		ID:           uuid.New().String(),
		JobID:        jobID,
		Item:         item,
		Error:        cause.Error(),
		ErrorType:    resilience.ClassifyError(cause),
		Attempts:     attempts,
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if err := o.store.EnqueueDLQ(context.WithoutCancel(ctx), entry); err != nil {
		zap.L().Warn("batch: enqueue dlq",
			zap.String("job_id", jobID),
			zap.String("item_id", item.ID),
			zap.Error(err),
		)
	}
}

// RetryFailed re-runs dead-lettered items from a previous job as a new batch.
// Entries whose item succeeds are removed from the queue.
func (o *Orchestrator) RetryFailed(ctx context.Context, jobID string) (*model.BatchJob, error) {
	entries, err := o.store.ListDLQ(ctx, jobID, 0)
	if err != nil {
		return nil, eris.Wrap(err, "batch: list dlq")
	}
	if len(entries) == 0 {
		return nil, eris.Errorf("batch: no dead-lettered items for job %s", jobID)
	}

	items := make([]model.PairItem, 0, len(entries))
	byItemID := make(map[string]string, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
		byItemID[e.Item.ID] = e.ID
	}

	job, err := o.Run(ctx, items)
	if err != nil {
		return nil, err
	}

	for _, res := range job.Results {
		if !res.Succeeded() {
			continue
		}
		if entryID, ok := byItemID[res.ItemID]; ok {
			if err := o.store.RemoveDLQ(ctx, entryID); err != nil {
				zap.L().Warn("batch: remove dlq entry", zap.String("entry_id", entryID), zap.Error(err))
			}
		}
	}
	return job, nil
}
