// Package notify delivers outbound notifications on lifecycle transitions.
// Delivery is fire-and-forget: failures are logged and counted, never
// surfaced to the operation that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/texlink/partnerhub/internal/observability/metrics"
	"github.com/texlink/partnerhub/internal/reliability/circuitbreaker"
	"github.com/texlink/partnerhub/internal/reliability/retry"
)

// Notification is one outbound message about a lifecycle event.
type Notification struct {
	Event       string            `json:"event"`
	RecipientID string            `json:"recipientId"`
	Subject     string            `json:"subject"`
	Data        map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// New returns a webhook notifier when a URL is configured, otherwise a
// log-only notifier.
func New(webhookURL string, logger *slog.Logger) Notifier {
	if webhookURL == "" {
		return &LogNotifier{logger: logger}
	}
	return NewWebhookNotifier(webhookURL, logger)
}

// LogNotifier records notifications in the application log only.
type LogNotifier struct {
	logger *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, msg Notification) {
	n.logger.Info("notification",
		slog.String("event", msg.Event),
		slog.String("recipient_id", msg.RecipientID),
		slog.String("subject", msg.Subject),
	)
	metrics.ObserveNotification("logged")
}

// WebhookNotifier POSTs notifications to an external delivery service,
// with retry and a circuit breaker so a dead endpoint cannot pile up
// goroutines waiting on timeouts.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   *retry.Config
	logger  *slog.Logger
}

func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retry:   retry.DefaultConfig(),
		logger:  logger,
	}
}

// Notify delivers in the background; the caller's context is not used so an
// ending request does not cancel delivery.
func (n *WebhookNotifier) Notify(_ context.Context, msg Notification) {
	go n.deliver(msg)
}

func (n *WebhookNotifier) deliver(msg Notification) {
	if !n.breaker.AllowRequest() {
		n.logger.Warn("notification dropped, circuit open",
			slog.String("event", msg.Event),
			slog.String("recipient_id", msg.RecipientID),
		)
		metrics.ObserveNotification("dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := retry.Do(ctx, n.retry, n.logger, "notify", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.post(ctx, msg)
	})
	if err != nil {
		n.breaker.RecordFailure()
		n.logger.Error("notification delivery failed",
			slog.String("event", msg.Event),
			slog.String("recipient_id", msg.RecipientID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveNotification("error")
		return
	}

	n.breaker.RecordSuccess()
	metrics.ObserveNotification("success")
}

func (n *WebhookNotifier) post(ctx context.Context, msg Notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
