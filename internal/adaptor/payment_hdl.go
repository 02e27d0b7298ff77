package adaptor

import (
	"encoding/json"
	"io"
	"net/http"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/internal/integration/webhook"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	service  usecase.PaymentService
	verifier *webhook.Verifier
	log      *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, verifier *webhook.Verifier, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		verifier: verifier,
		log:      log.With(zap.String("handler", "payment")),
	}
}

// CreateIntent handles POST /api/payments/intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}

	intent, err := h.service.CreateIntent(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, err, "create payment intent")
		return
	}

	utils.ResponseCreated(w, "Payment intent created", intent)
}

// Webhook handles POST /api/payments/webhook. Verified events are always
// acknowledged unless storage is temporarily unavailable, in which case the
// processor is asked to redeliver.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.verifier.Verify(payload, r.Header.Get(webhook.SignatureHeader)); err != nil {
		h.log.Warn("Rejected webhook delivery", zap.Error(err), zap.String("ip", r.RemoteAddr))
		utils.ResponseBadRequest(w, "Invalid signature", nil)
		return
	}

	event, err := entity.DecodePaymentEvent(payload)
	if err != nil {
		h.log.Warn("Malformed webhook payload", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid event payload", nil)
		return
	}

	if err := h.service.ApplyEvent(r.Context(), event); err != nil {
		if apperror.KindOf(err) == apperror.KindTransient {
			writeError(w, h.log, err, "apply payment event")
			return
		}
		h.log.Error("Failed to apply payment event, acknowledging anyway",
			zap.String("kind", event.Kind()),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response.WebhookAckResponse{Received: true})
}
