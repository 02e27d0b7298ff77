package wire

import (
	"hotel-booking/internal/adaptor"
	"hotel-booking/pkg/middleware"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReservation(
	r chi.Router,
	reservationHandler *adaptor.ReservationHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== GUEST ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.GuestIdentity(log))

		r.Post("/api/reservations", reservationHandler.CreateReservation)
		r.Get("/api/reservations/lookup", reservationHandler.Lookup)

		r.With(middleware.RequireGuest).Get("/api/guests/me/reservations", reservationHandler.GuestHistory)
	})

	// ==================== OPERATOR ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Operator(config.Auth.OperatorTokenHash, log))

		r.Get("/api/reservations", reservationHandler.ListReservations)
		r.Get("/api/reservations/{id}", reservationHandler.GetReservation)
		r.Patch("/api/reservations/{id}", reservationHandler.UpdateStatus)
		r.Post("/api/reservations/{id}/cancel", reservationHandler.CancelReservation)
		r.Post("/api/reservations/{id}/notifications", reservationHandler.RetryNotification)
	})
}
