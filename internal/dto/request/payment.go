package request

import "github.com/shopspring/decimal"

type CreatePaymentIntentRequest struct {
	ReservationID  string          `json:"reservation_id" validate:"required,uuid4"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" validate:"omitempty,len=3,alpha"`
	ReceiptEmail   *string         `json:"receipt_email,omitempty" validate:"omitempty,email"`
	IdempotencyKey string          `json:"idempotency_key" validate:"omitempty,max=255"`
}
