package adaptor

import (
	"hotel-booking/internal/integration/webhook"
	"hotel-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Unit         *UnitHandler
	Availability *AvailabilityHandler
	Reservation  *ReservationHandler
	Payment      *PaymentHandler
}

func NewHandler(service *usecase.Service, verifier *webhook.Verifier, log *zap.Logger) *Handler {
	return &Handler{
		Unit:         NewUnitHandler(service.Unit, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
		Reservation:  NewReservationHandler(service.Reservation, service.Dispatch, log),
		Payment:      NewPaymentHandler(service.Payment, verifier, log),
	}
}
