package adaptor

import (
	"encoding/json"
	"net/http"

	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets a client resubmit a booking form safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type ReservationHandler struct {
	service  usecase.ReservationService
	dispatch usecase.DispatchService
	log      *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, dispatch usecase.DispatchService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:  service,
		dispatch: dispatch,
		log:      log.With(zap.String("handler", "reservation")),
	}
}

// CreateReservation handles POST /api/reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req request.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	opts := usecase.CreateOptions{IdempotencyKey: r.Header.Get(IdempotencyKeyHeader)}
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		opts.UserID = &userID
	}

	reservation, err := h.service.Create(r.Context(), &req, opts)
	if err != nil {
		writeError(w, h.log, err, "create reservation")
		return
	}

	utils.ResponseCreated(w, "Reservation created", reservation)
}

// Lookup handles GET /api/reservations/lookup?code=&email=
func (h *ReservationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	reservation, err := h.service.Lookup(r.Context(), &request.LookupReservationRequest{
		Code:  query.Get("code"),
		Email: query.Get("email"),
	})
	if err != nil {
		writeError(w, h.log, err, "lookup reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// GuestHistory handles GET /api/guests/me/reservations
func (h *ReservationHandler) GuestHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reservations, err := h.service.GuestHistory(r.Context(), userID, &request.GuestHistoryRequest{
		Scope: r.URL.Query().Get("status"),
	})
	if err != nil {
		writeError(w, h.log, err, "get guest history")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// ==================== OPERATOR METHODS ====================

// ListReservations handles GET /api/reservations
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &request.ListReservationsRequest{
		Status: query.Get("status"),
		Search: query.Get("search"),
		PaginatedRequest: request.PaginatedRequest{
			Page:     utils.ParseInt(query.Get("page"), 1),
			PageSize: utils.ParseInt(query.Get("page_size"), 0),
		},
	}

	reservations, err := h.service.ListReservations(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "list reservations")
		return
	}

	utils.ResponseSuccess(w, "success", reservations)
}

// GetReservation handles GET /api/reservations/{id}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservation, err := h.service.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get reservation")
		return
	}

	utils.ResponseSuccess(w, "success", reservation)
}

// UpdateStatus handles PATCH /api/reservations/{id}
func (h *ReservationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req request.TransitionReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	reservation, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "update reservation status")
		return
	}

	utils.ResponseSuccess(w, "Reservation updated", reservation)
}

// CancelReservation handles POST /api/reservations/{id}/cancel
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	var req request.CancelReservationRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	reservation, err := h.service.Cancel(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "cancel reservation")
		return
	}

	utils.ResponseSuccess(w, "Reservation cancelled", reservation)
}

// RetryNotification handles POST /api/reservations/{id}/notifications
func (h *ReservationHandler) RetryNotification(w http.ResponseWriter, r *http.Request) {
	var req request.RetryDispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	entry, err := h.dispatch.Retry(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "retry notification")
		return
	}

	utils.ResponseSuccess(w, "success", entry)
}
