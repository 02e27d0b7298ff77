package usecase

import (
	"time"

	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/integration/guard"
	"hotel-booking/internal/integration/notify"
	"hotel-booking/internal/integration/processor"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

// Dependencies are the external collaborators. Nil fields fall back to local
// stand-ins: the sandbox processor, the log sender and no submission guard.
type Dependencies struct {
	Processor processor.Processor
	Notifier  notify.Sender
	Guard     guard.SubmissionGuard
	Tax       TaxPolicy
	Now       func() time.Time
}

type Service struct {
	Unit         UnitService
	Availability AvailabilityService
	Reservation  ReservationService
	Payment      PaymentService
	Dispatch     DispatchService
}

func NewService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	if deps.Processor == nil {
		deps.Processor = processor.NewSandbox()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogSender(log)
	}
	if deps.Guard == nil {
		deps.Guard = guard.Nop{}
	}
	if deps.Tax == nil {
		deps.Tax = FlatRateTax{Rate: config.Booking.TaxRate}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	dispatch := NewDispatchService(repo, deps.Notifier, config.Dispatch, log)

	return &Service{
		Unit:         NewUnitService(repo.Unit, log),
		Availability: NewAvailabilityService(repo.Unit, deps.Now, log),
		Reservation:  NewReservationService(repo, dispatch, deps.Guard, deps.Tax, config.Booking, deps.Now, log),
		Payment:      NewPaymentService(repo, deps.Processor, dispatch, config.Booking, config.Payment, log),
		Dispatch:     dispatch,
	}
}
