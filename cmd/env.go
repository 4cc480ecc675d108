package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/batch"
	"github.com/partsight/inspect-cli/internal/export"
	"github.com/partsight/inspect-cli/internal/feedback"
	"github.com/partsight/inspect-cli/internal/model"
	"github.com/partsight/inspect-cli/internal/monitoring"
	"github.com/partsight/inspect-cli/internal/pipeline"
	"github.com/partsight/inspect-cli/internal/store"
	"github.com/partsight/inspect-cli/pkg/salesforce"
	"github.com/partsight/inspect-cli/pkg/vision"
)

// env holds the initialized store, clients, and engines shared by the
// inspect/batch/serve commands.
type env struct {
	Store        store.Store
	Pipeline     *pipeline.Pipeline
	Feedback     *feedback.Loop
	Orchestrator *batch.Orchestrator
	Exporter     *export.Dispatcher
	Collector    *monitoring.Collector
	Alerter      *monitoring.Alerter
}

// Close releases resources held by the environment.
func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv wires the full environment. progress may be nil; when set it
// receives one update per completed batch item.
func initEnv(ctx context.Context, progress func(model.ProgressUpdate)) (*env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Vision.Key == "" {
		_ = st.Close()
		return nil, eris.New("vision API key is required (INSPECT_VISION_KEY)")
	}
	visionClient := vision.NewClient(cfg.Vision.Key, vision.Options{
		Model:     cfg.Vision.Model,
		MaxTokens: cfg.Vision.MaxTokens,
	})

	loop := feedback.NewLoop(st)
	pipe := pipeline.New(cfg, st, visionClient, loop)
	orch := batch.NewOrchestrator(cfg.Batch, st, pipe, progress)

	var sinks []export.Sink
	if cfg.Export.WebhookURL != "" {
		sinks = append(sinks, export.NewWebhookSink(cfg.Export.WebhookURL, http.DefaultClient))
	}
	if cfg.Export.XLSXDir != "" {
		sinks = append(sinks, export.NewXLSXSink(cfg.Export.XLSXDir))
	}
	if cfg.Salesforce.Enabled() {
		sfClient, sfErr := salesforce.New(salesforce.Config{
			Domain:           cfg.Salesforce.Domain,
			Username:         cfg.Salesforce.Username,
			Password:         cfg.Salesforce.Password,
			SecurityToken:    cfg.Salesforce.SecurityToken,
			ConsumerKey:      cfg.Salesforce.ConsumerKey,
			ConsumerSecret:   cfg.Salesforce.ConsumerSecret,
			InspectionObject: cfg.Salesforce.InspectionObj,
		})
		if sfErr != nil {
			zap.L().Warn("salesforce init failed, sink disabled", zap.Error(sfErr))
		} else {
			sinks = append(sinks, export.NewSalesforceSink(sfClient))
		}
	}

	return &env{
		Store:        st,
		Pipeline:     pipe,
		Feedback:     loop,
		Orchestrator: orch,
		Exporter:     export.NewDispatcher(sinks...),
		Collector:    monitoring.NewCollector(st),
		Alerter:      monitoring.NewAlerter(cfg.Monitoring),
	}, nil
}
