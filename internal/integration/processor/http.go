package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient posts intent requests as JSON to <baseURL>/v1/payment_intents.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
		log:     log.With(zap.String("processor", "http")),
	}
}

type intentPayload struct {
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email,omitempty"`
	Metadata     map[string]string `json:"metadata"`
}

// Amounts are sent in minor units.
func (c *HTTPClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(intentPayload{
		Amount:       req.Amount.Shift(2).Round(0).IntPart(),
		Currency:     strings.ToLower(req.Currency),
		ReceiptEmail: req.ReceiptEmail,
		Metadata:     map[string]string{"reservation_id": req.ReservationID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("encode intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("Payment processor timed out", zap.Duration("timeout", c.timeout))
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		c.log.Warn("Payment processor rejected intent", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("decode intent response: missing id")
	}
	return &intent, nil
}
