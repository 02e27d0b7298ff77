package response

import (
	"time"

	"hotel-booking/internal/data/entity"
)

type PaymentIntentResponse struct {
	ReservationID string               `json:"reservation_id"`
	IntentID      string               `json:"intent_id"`
	ClientSecret  string               `json:"client_secret"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	Status        entity.PaymentStatus `json:"status"`
}

type PaymentResponse struct {
	ID        string               `json:"id"`
	IntentID  string               `json:"intent_id"`
	Amount    string               `json:"amount"`
	Currency  string               `json:"currency"`
	Status    entity.PaymentStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}

func PaymentToResponse(p *entity.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID.String(),
		IntentID:  p.IntentID,
		Amount:    p.Amount.StringFixed(2),
		Currency:  p.Currency,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
