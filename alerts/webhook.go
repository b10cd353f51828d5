package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// WebhookSink delivers alerts as JSON POST requests to an external
// endpoint, typically an incident management system.
type WebhookSink struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhookSink creates a sink posting to the given URL. A zero timeout
// defaults to ten seconds.
func NewWebhookSink(url string, timeout time.Duration, log *slog.Logger) *WebhookSink {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Deliver implements interfaces.AlertSink.
func (s *WebhookSink) Deliver(ctx context.Context, alert interfaces.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	s.log.Debug("Delivered alert to webhook",
		slog.String("alert_id", alert.ID),
		slog.Int("status", resp.StatusCode))

	return nil
}
