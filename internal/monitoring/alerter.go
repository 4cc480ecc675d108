package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partsight/inspect-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailRate         AlertType = "analysis_fail_rate"
	AlertLowConfidence    AlertType = "low_avg_confidence"
	AlertCalibrationDrift AlertType = "calibration_drift"
	AlertDLQBacklog       AlertType = "dlq_backlog"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// minSampleSize suppresses rate alerts until enough analyses have finished
// for the rate to mean anything.
const minSampleSize = 5

// dlqAlertDepth is the queue depth at which a backlog alert fires.
const dlqAlertDepth = 10

// Alerter evaluates a MetricsSnapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if snap.AnalysesTotal >= minSampleSize && snap.FailRate > a.cfg.MaxFailRate {
		alerts = append(alerts, Alert{
			Type:     AlertFailRate,
			Severity: "high",
			Message: fmt.Sprintf("analysis fail rate %.1f%% exceeds threshold %.1f%% (%d failed / %d total in last %dh)",
				snap.FailRate*100, a.cfg.MaxFailRate*100,
				snap.AnalysesFailed, snap.AnalysesTotal, snap.LookbackHours),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.MaxFailRate,
				"failed":    snap.AnalysesFailed,
				"total":     snap.AnalysesTotal,
			},
			Timestamp: now,
		})
	}

	if snap.AnalysesComplete >= minSampleSize && snap.AvgConfidence < a.cfg.MinAvgConfidence {
		alerts = append(alerts, Alert{
			Type:     AlertLowConfidence,
			Severity: "medium",
			Message: fmt.Sprintf("average confidence %.2f below threshold %.2f over %d completed analyses",
				snap.AvgConfidence, a.cfg.MinAvgConfidence, snap.AnalysesComplete),
			Details: map[string]any{
				"avg_confidence": snap.AvgConfidence,
				"threshold":      a.cfg.MinAvgConfidence,
			},
			Timestamp: now,
		})
	}

	if snap.FeedbackCount >= minSampleSize && snap.CalibrationDrift > a.cfg.MaxCalibrationDrift {
		alerts = append(alerts, Alert{
			Type:     AlertCalibrationDrift,
			Severity: "medium",
			Message: fmt.Sprintf("calibration drift %.2f exceeds threshold %.2f over %d feedback events",
				snap.CalibrationDrift, a.cfg.MaxCalibrationDrift, snap.FeedbackCount),
			Details: map[string]any{
				"calibration_drift": snap.CalibrationDrift,
				"threshold":         a.cfg.MaxCalibrationDrift,
			},
			Timestamp: now,
		})
	}

	if snap.DLQDepth >= dlqAlertDepth {
		alerts = append(alerts, Alert{
			Type:      AlertDLQBacklog,
			Severity:  "medium",
			Message:   fmt.Sprintf("%d items in the dead letter queue", snap.DLQDepth),
			Details:   map[string]any{"dlq_depth": snap.DLQDepth},
			Timestamp: now,
		})
	}

	return alerts
}

// Send posts one alert to the configured webhook. With no webhook configured
// the alert is only logged.
func (a *Alerter) Send(ctx context.Context, alert Alert) error {
	zap.L().Warn("monitoring: alert",
		zap.String("type", string(alert.Type)),
		zap.String("severity", alert.Severity),
		zap.String("message", alert.Message),
	)

	if a.cfg.AlertWebhookURL == "" {
		return nil
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.AlertWebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build alert request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post alert")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("monitoring: alert webhook status %d", resp.StatusCode)
	}
	return nil
}
