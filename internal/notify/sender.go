// Package notify delivers composed notification messages to the chat
// gateway. The gateway itself (bot transport, keyboards, routing) lives
// outside this service; it receives messages over a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sender pushes one message to one user. Implementations must treat
// delivery failure as a normal outcome; the scheduler discards errors.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// WebhookSender posts messages as JSON to the chat gateway.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender targeting url.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookMessage struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Send implements Sender. Any non-2xx response counts as a delivery failure.
func (s *WebhookSender) Send(ctx context.Context, userID int64, text string) error {
	payload, err := json.Marshal(webhookMessage{UserID: userID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
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
		return fmt.Errorf("webhook delivery: HTTP %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used
// when no webhook is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender and never fails.
func (s *LogSender) Send(ctx context.Context, userID int64, text string) error {
	s.logger.Info("notification", zap.Int64("user_id", userID), zap.String("text", text))
	return nil
}
