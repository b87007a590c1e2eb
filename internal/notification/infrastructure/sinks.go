// Package infrastructure provides the concrete notification sinks.
package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	notificationApp "github.com/slotwise/slotwise/internal/notification/application"
)

// LogEmailSink records the email that would be sent. It stands in for the
// external mail delivery service, which renders and sends the actual message.
type LogEmailSink struct {
	logger *slog.Logger
}

// NewLogEmailSink creates a logging email sink.
func NewLogEmailSink(logger *slog.Logger) *LogEmailSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailSink{logger: logger}
}

func (s *LogEmailSink) Name() string { return "email" }

// Deliver logs the outgoing email intent.
func (s *LogEmailSink) Deliver(_ context.Context, n notificationApp.BookingNotification) error {
	s.logger.Info("booking email queued",
		"kind", n.Kind,
		"booking_id", n.BookingID,
		"to", n.InviteeEmail,
		"start_time", n.StartTime,
	)
	return nil
}

// WebhookSink POSTs the notification as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink for the given endpoint.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver posts the notification. Retry bookkeeping lives with the receiver.
func (s *WebhookSink) Deliver(ctx context.Context, n notificationApp.BookingNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
