package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// HTTPEconomyClient talks to the economy service over its internal REST API.
type HTTPEconomyClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPEconomyClient constructs an economy client against baseURL.
func NewHTTPEconomyClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPEconomyClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPEconomyClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type escrowRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount,omitempty"`
}

// LockEscrow asks the economy service to hold funds for an order. A 409 is
// the service's business rejection (insufficient balance, frozen wallet) and
// maps to LockRejected without an error.
func (c *HTTPEconomyClient) LockEscrow(ctx context.Context, orderID string, amount float64, idempotencyKey string) (LockOutcome, error) {
	status, err := c.post(ctx, "/internal/escrow/lock", escrowRequest{OrderID: orderID, Amount: amount}, idempotencyKey)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		return LockRejected, nil
	}
	return LockAccepted, nil
}

// ReleaseEscrow pays the held funds out to the executor.
func (c *HTTPEconomyClient) ReleaseEscrow(ctx context.Context, orderID string, idempotencyKey string) error {
	_, err := c.post(ctx, "/internal/escrow/release", escrowRequest{OrderID: orderID}, idempotencyKey)
	return err
}

// RefundEscrow returns the held funds to the client.
func (c *HTTPEconomyClient) RefundEscrow(ctx context.Context, orderID string, idempotencyKey string) error {
	_, err := c.post(ctx, "/internal/escrow/refund", escrowRequest{OrderID: orderID}, idempotencyKey)
	return err
}

func (c *HTTPEconomyClient) post(ctx context.Context, path string, payload escrowRequest, idempotencyKey string) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal escrow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build escrow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(idempotencyHeader, idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("economy call %s: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp.StatusCode, nil
	}
	if resp.StatusCode == http.StatusConflict {
		return resp.StatusCode, nil
	}

	c.logger.Warn("economy call failed",
		zap.String("path", path),
		zap.String("order_id", payload.OrderID),
		zap.Int("status", resp.StatusCode))
	return resp.StatusCode, fmt.Errorf("economy call %s: unexpected status %d", path, resp.StatusCode)
}
