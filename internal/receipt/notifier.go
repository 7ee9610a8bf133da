package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/utafrali/CampusMerchGo/internal/event"
	"github.com/utafrali/CampusMerchGo/pkg/httpclient"
)

// Sender posts receipt payloads to an external receipt service.
type Sender interface {
	Send(ctx context.Context, receipt *event.ReceiptData) error
}

// NopSender is used when no receipt service is configured.
type NopSender struct{}

// Send discards the receipt.
func (NopSender) Send(ctx context.Context, receipt *event.ReceiptData) error {
	return nil
}

// Notifier delivers paid-reservation receipts to an external HTTP endpoint.
// The endpoint is outside our control, so calls go through the circuit
// breaker and a delivery failure never fails the payment itself; the caller
// logs and moves on.
type Notifier struct {
	client *httpclient.CircuitBreakerClient
	url    string
	logger *slog.Logger
}

// NewNotifier creates a receipt notifier targeting the given URL.
func NewNotifier(client *httpclient.CircuitBreakerClient, url string, logger *slog.Logger) *Notifier {
	return &Notifier{
		client: client,
		url:    url,
		logger: logger,
	}
}

// Send posts the receipt payload as JSON. A non-2xx response is an error.
func (n *Notifier) Send(ctx context.Context, receipt *event.ReceiptData) error {
	body, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build receipt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("post receipt: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("receipt service returned status %d", resp.StatusCode)
	}

	n.logger.DebugContext(ctx, "receipt delivered",
		slog.String("reservation_id", receipt.ReservationID),
	)
	return nil
}
