// Package monitoring raises alerts when a batch run's outcome breaches
// configured health thresholds.
package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorRate   AlertType = "batch_error_rate"
	AlertNoDataRate  AlertType = "batch_no_data_rate"
	AlertLowCoverage AlertType = "batch_low_coverage"
)

// minItems is the smallest run rate-based alerts are evaluated for.
const minItems = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Snapshot summarizes one batch run.
type Snapshot struct {
	RunID   string
	Catalog model.Catalog
	Total   int
	Counts  map[model.Status]int
}

// FromBatch summarizes b.
func FromBatch(b *model.BatchResult) *Snapshot {
	s := &Snapshot{RunID: b.RunID, Total: len(b.Results), Counts: make(map[model.Status]int)}
	for _, r := range b.Results {
		s.Counts[r.Status]++
		if s.Catalog == "" {
			s.Catalog = r.Catalog
		}
	}
	return s
}

// Rate returns the share of items with status st.
func (s *Snapshot) Rate(st model.Status) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Counts[st]) / float64(s.Total)
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	if snap.Total < minItems {
		return nil
	}
	now := time.Now().UTC()

	if rate := snap.Rate(model.StatusError); a.cfg.ErrorRateThreshold > 0 && rate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Batch error rate %.1f%% exceeds threshold %.1f%% (%d of %d %s items)",
				rate*100, a.cfg.ErrorRateThreshold*100,
				snap.Counts[model.StatusError], snap.Total, snap.Catalog,
			),
			RunID: snap.RunID,
			Details: map[string]any{
				"error_rate": rate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errors":     snap.Counts[model.StatusError],
				"total":      snap.Total,
			},
			Timestamp: now,
		})
	}

	if rate := snap.Rate(model.StatusNoData); a.cfg.NoDataRateThreshold > 0 && rate > a.cfg.NoDataRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertNoDataRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of %s items had no usable source data (threshold %.1f%%)",
				rate*100, snap.Catalog, a.cfg.NoDataRateThreshold*100,
			),
			RunID: snap.RunID,
			Details: map[string]any{
				"no_data_rate": rate,
				"threshold":    a.cfg.NoDataRateThreshold,
				"no_data":      snap.Counts[model.StatusNoData],
			},
			Timestamp: now,
		})
	}

	if rate := snap.Rate(model.StatusSuccess); a.cfg.MinSuccessRate > 0 && rate < a.cfg.MinSuccessRate {
		alerts = append(alerts, Alert{
			Type:     AlertLowCoverage,
			Severity: "low",
			Message: fmt.Sprintf(
				"Only %.1f%% of %s items got a full recommendation list (minimum %.1f%%)",
				rate*100, snap.Catalog, a.cfg.MinSuccessRate*100,
			),
			RunID: snap.RunID,
			Details: map[string]any{
				"success_rate": rate,
				"minimum":      a.cfg.MinSuccessRate,
				"insufficient": snap.Counts[model.StatusInsufficient],
				"no_similar":   snap.Counts[model.StatusNoSimilar],
			},
			Timestamp: now,
		})
	}

	return alerts
}

// Check evaluates b and sends any alerts. It returns the alerts raised.
func (a *Alerter) Check(ctx context.Context, b *model.BatchResult) []Alert {
	alerts := a.Evaluate(FromBatch(b))
	for _, al := range alerts {
		zap.L().Warn("monitoring: "+al.Message, zap.String("type", string(al.Type)), zap.String("run_id", al.RunID))
	}
	a.SendAlerts(ctx, alerts)
	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
