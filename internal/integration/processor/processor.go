// Package processor talks to the external payment processor.
package processor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable covers timeouts and 5xx answers. The call may be retried.
	ErrUnavailable = errors.New("payment processor unavailable")
	// ErrRejected is a definitive refusal of the request.
	ErrRejected = errors.New("payment processor rejected request")
)

type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	ReservationID  uuid.UUID
	ReceiptEmail   string
	IdempotencyKey string
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}
