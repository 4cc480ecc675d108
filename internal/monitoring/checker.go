package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/config"
)

// Checker runs periodic alert checks in the background while the webhook
// server is up.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, alerter: alerter, cfg: cfg}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	lookback := c.cfg.LookbackHours
	if lookback <= 0 {
		lookback = 24
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", lookback),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, lookback, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, lookback int, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, lookback)
	if err != nil {
		log.Error("monitoring: collect metrics", zap.Error(err))
		return
	}

	for _, alert := range c.alerter.Evaluate(snap) {
		if err := c.alerter.Send(ctx, alert); err != nil {
			log.Error("monitoring: send alert", zap.String("type", string(alert.Type)), zap.Error(err))
		}
	}
}
