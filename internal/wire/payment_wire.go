package wire

import (
	"hotel-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler) {
	r.Post("/api/payments/intent", paymentHandler.CreateIntent)

	// signature verified in the handler; no session middleware
	r.Post("/api/payments/webhook", paymentHandler.Webhook)
}
