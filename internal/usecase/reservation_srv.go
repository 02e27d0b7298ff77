package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/internal/integration/guard"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateOptions carries per-call inputs that do not come from the guest form.
type CreateOptions struct {
	UserID *uuid.UUID
	// IdempotencyKey collapses resubmissions of the same booking form.
	IdempotencyKey string
	// Tax overrides the service's default policy when set.
	Tax TaxPolicy
}

type ReservationService interface {
	Create(ctx context.Context, req *request.CreateReservationRequest, opts CreateOptions) (*response.ReservationResponse, error)
	Transition(ctx context.Context, id string, req *request.TransitionReservationRequest) (*response.ReservationResponse, error)
	Cancel(ctx context.Context, id string, req *request.CancelReservationRequest) (*response.ReservationResponse, error)

	GetReservation(ctx context.Context, id string) (*response.ReservationDetailResponse, error)
	Lookup(ctx context.Context, req *request.LookupReservationRequest) (*response.ReservationResponse, error)
	ListReservations(ctx context.Context, req *request.ListReservationsRequest) (*response.PaginatedResponse[response.ReservationResponse], error)
	GuestHistory(ctx context.Context, userID uuid.UUID, req *request.GuestHistoryRequest) ([]response.ReservationResponse, error)
}

const (
	maxCodeAttempts     = 5
	maxTransitionRounds = 3
	minListPageSize     = 5
)

type reservationService struct {
	repo            *repository.Repository
	dispatch        DispatchService
	guard           guard.SubmissionGuard
	tax             TaxPolicy
	defaultPageSize int
	now             func() time.Time
	log             *zap.Logger
}

func NewReservationService(
	repo *repository.Repository,
	dispatch DispatchService,
	submissions guard.SubmissionGuard,
	tax TaxPolicy,
	config utils.BookingConfig,
	now func() time.Time,
	log *zap.Logger,
) ReservationService {
	return &reservationService{
		repo:            repo,
		dispatch:        dispatch,
		guard:           submissions,
		tax:             tax,
		defaultPageSize: config.DefaultPageSize,
		now:             now,
		log:             log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) Create(ctx context.Context, req *request.CreateReservationRequest, opts CreateOptions) (*response.ReservationResponse, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	errs := utils.ValidateStruct(req)
	stay, stayErrs := validateStay(req.CheckIn, req.CheckOut, utils.Today(s.now()))
	if len(stayErrs) > 0 {
		errs = mergeErrors(errs, stayErrs)
	}
	if len(errs) > 0 {
		s.log.Warn("Create reservation validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation(errs)
	}

	unitID, err := parseID("unit_id", req.UnitID)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(opts.IdempotencyKey); key != "" {
		existing, owned, err := s.guard.Begin(ctx, key)
		switch {
		case errors.Is(err, guard.ErrInFlight):
			return nil, apperror.Conflict("reservation", "", "an identical booking request is still being processed")
		case err != nil:
			s.log.Warn("Submission guard unavailable, continuing without it", zap.Error(err))
		case !owned:
			s.log.Info("Replayed booking submission", zap.String("reservation_id", existing.String()))
			return s.findResponse(ctx, existing)
		default:
			resp, err := s.create(ctx, unitID, stay, req, opts)
			if err != nil {
				if abortErr := s.guard.Abort(ctx, key); abortErr != nil {
					s.log.Warn("Failed to release submission key", zap.Error(abortErr))
				}
				return nil, err
			}
			if err := s.guard.Complete(ctx, key, uuid.MustParse(resp.ID)); err != nil {
				s.log.Warn("Failed to record submission key", zap.Error(err))
			}
			return resp, nil
		}
	}

	return s.create(ctx, unitID, stay, req, opts)
}

func (s *reservationService) create(ctx context.Context, unitID uuid.UUID, stay entity.DateRange, req *request.CreateReservationRequest, opts CreateOptions) (*response.ReservationResponse, error) {
	policy := s.tax
	if opts.Tax != nil {
		policy = opts.Tax
	}

	var err error
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		var res *entity.Reservation
		res, err = s.insert(ctx, unitID, stay, req, opts.UserID, policy)
		if err == nil {
			s.log.Info("Reservation created",
				zap.String("reservation_id", res.ID.String()),
				zap.String("unit_id", unitID.String()),
				zap.String("confirmation_code", res.ConfirmationCode),
				zap.String("total", res.Total.StringFixed(2)),
			)
			resp := response.ReservationToResponse(res)
			return &resp, nil
		}
		if !repository.IsConstraint(err, repository.ConstraintConfirmationCode) {
			break
		}
		s.log.Debug("Confirmation code collision, regenerating", zap.Int("attempt", attempt))
	}

	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return nil, err
	case errors.Is(err, repository.ErrUnitUnavailable):
		s.log.Warn("Unit no longer available",
			zap.String("unit_id", unitID.String()),
			zap.String("check_in", req.CheckIn),
			zap.String("check_out", req.CheckOut),
		)
		return nil, apperror.Conflict("unit", unitID.String(), "unit is no longer available for the selected dates, please choose another date or unit")
	case repository.IsConstraint(err, repository.ConstraintConfirmationCode):
		return nil, apperror.Transient("reservation creation", err)
	}
	return nil, storageError("create reservation", err)
}

// insert runs the locked overlap check and the insert in one transaction.
func (s *reservationService) insert(ctx context.Context, unitID uuid.UUID, stay entity.DateRange, req *request.CreateReservationRequest, userID *uuid.UUID, policy TaxPolicy) (*entity.Reservation, error) {
	code, err := utils.GenerateConfirmationCode()
	if err != nil {
		return nil, err
	}

	var res *entity.Reservation
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		unit, err := s.repo.Unit.LockForBooking(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			return apperror.NotFound("unit", unitID.String())
		}
		if req.Guests > unit.Capacity {
			return apperror.ValidationField("guests", fmt.Sprintf("Exceeds unit capacity of %d", unit.Capacity))
		}

		taken, err := s.repo.Reservation.HasOverlap(ctx, unitID, stay)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrUnitUnavailable
		}

		quote := PriceStay(unit, stay, policy)
		res = &entity.Reservation{
			Base:             entity.Base{ID: uuid.New()},
			ConfirmationCode: code,
			UnitID:           unitID,
			UserID:           userID,
			Guest: entity.Guest{
				FirstName:       req.FirstName,
				LastName:        req.LastName,
				Email:           req.Email,
				Phone:           trimmed(req.PhoneNumber),
				SpecialRequests: trimmed(req.SpecialRequests),
			},
			CheckIn:    stay.CheckIn,
			CheckOut:   stay.CheckOut,
			GuestCount: req.Guests,
			Subtotal:   quote.Subtotal,
			Tax:        quote.Tax,
			Total:      quote.Total,
			Status:     entity.ReservationStatusPending,
		}
		return s.repo.Reservation.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *reservationService) Transition(ctx context.Context, id string, req *request.TransitionReservationRequest) (*response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}
	resID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	next, _ := entity.ParseReservationStatus(req.Status)

	var reason *string
	if next == entity.ReservationStatusCancelled {
		r := entity.DefaultCancellationReason
		if req.Reason != nil && strings.TrimSpace(*req.Reason) != "" {
			r = strings.TrimSpace(*req.Reason)
		}
		reason = &r
	}

	for round := 0; round < maxTransitionRounds; round++ {
		current, err := s.repo.Reservation.FindByID(ctx, resID)
		if err != nil {
			return nil, storageError("transition reservation", err)
		}
		if current == nil {
			return nil, apperror.NotFound("reservation", id)
		}
		if !current.Status.CanTransitionTo(next) {
			s.log.Warn("Rejected reservation transition",
				zap.String("reservation_id", id),
				zap.String("from", string(current.Status)),
				zap.String("to", string(next)),
			)
			return nil, apperror.InvalidTransition(id, string(current.Status), string(next))
		}

		applied, err := s.repo.Reservation.UpdateStatus(ctx, resID, current.Status, next, reason)
		if err != nil {
			return nil, storageError("transition reservation", err)
		}
		if !applied {
			// someone moved it first; re-read and re-check against the new state
			continue
		}

		updated, err := s.repo.Reservation.FindByID(ctx, resID)
		if err != nil || updated == nil {
			updated = current
			updated.Status = next
			if reason != nil {
				updated.CancellationReason = reason
			}
		}

		s.log.Info("Reservation status changed",
			zap.String("reservation_id", id),
			zap.String("from", string(current.Status)),
			zap.String("to", string(next)),
		)

		switch next {
		case entity.ReservationStatusConfirmed:
			s.dispatch.Trigger(entity.DispatchBookingConfirmed, updated)
		case entity.ReservationStatusCancelled:
			s.dispatch.Trigger(entity.DispatchBookingCancelled, updated)
		}

		resp := response.ReservationToResponse(updated)
		return &resp, nil
	}

	return nil, apperror.Conflict("reservation", id, "reservation is being modified concurrently, please retry")
}

func (s *reservationService) Cancel(ctx context.Context, id string, req *request.CancelReservationRequest) (*response.ReservationResponse, error) {
	return s.Transition(ctx, id, &request.TransitionReservationRequest{
		Status: string(entity.ReservationStatusCancelled),
		Reason: req.Reason,
	})
}

func (s *reservationService) GetReservation(ctx context.Context, id string) (*response.ReservationDetailResponse, error) {
	resID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservation.FindByID(ctx, resID)
	if err != nil {
		return nil, storageError("get reservation", err)
	}
	if res == nil {
		return nil, apperror.NotFound("reservation", id)
	}

	detail := &response.ReservationDetailResponse{
		ReservationResponse: response.ReservationToResponse(res),
		Payments:            []response.PaymentResponse{},
		Notifications:       []response.DispatchResponse{},
	}

	unit, err := s.repo.Unit.FindByID(ctx, res.UnitID)
	if err != nil {
		return nil, storageError("get reservation unit", err)
	}
	if unit != nil {
		u := response.UnitToResponse(unit)
		detail.Unit = &u
	}

	payments, err := s.repo.Payment.ListByReservation(ctx, resID)
	if err != nil {
		return nil, storageError("get reservation payments", err)
	}
	for _, p := range payments {
		detail.Payments = append(detail.Payments, response.PaymentToResponse(p))
	}

	entries, err := s.dispatch.History(ctx, resID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		detail.Notifications = append(detail.Notifications, response.DispatchToResponse(e))
	}

	return detail, nil
}

func (s *reservationService) Lookup(ctx context.Context, req *request.LookupReservationRequest) (*response.ReservationResponse, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Email = strings.TrimSpace(req.Email)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	res, err := s.repo.Reservation.FindByConfirmationCode(ctx, req.Code)
	if err != nil {
		return nil, storageError("lookup reservation", err)
	}
	// a wrong email is reported exactly like an unknown code
	if res == nil || !strings.EqualFold(res.Guest.Email, req.Email) {
		return nil, apperror.NotFound("reservation", req.Code)
	}

	resp := response.ReservationToResponse(res)
	return &resp, nil
}

func (s *reservationService) ListReservations(ctx context.Context, req *request.ListReservationsRequest) (*response.PaginatedResponse[response.ReservationResponse], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	req.PageSize = utils.ClampPageSize(req.PageSize, minListPageSize, s.defaultPageSize)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	filter := entity.ReservationFilter{
		Search: req.Search,
		Limit:  req.Limit(),
		Offset: req.Offset(),
	}
	if status, ok := entity.ParseReservationStatus(req.Status); ok {
		filter.Status = &status
	}

	reservations, total, err := s.repo.Reservation.List(ctx, filter)
	if err != nil {
		return nil, storageError("list reservations", err)
	}

	items := make([]response.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		items = append(items, response.ReservationToResponse(r))
	}
	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

func (s *reservationService) GuestHistory(ctx context.Context, userID uuid.UUID, req *request.GuestHistoryRequest) ([]response.ReservationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	reservations, err := s.repo.Reservation.ListByUser(ctx, userID, entity.GuestHistoryScope(req.Scope), utils.Today(s.now()))
	if err != nil {
		return nil, storageError("guest history", err)
	}

	out := make([]response.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, response.ReservationToResponse(r))
	}
	return out, nil
}

func (s *reservationService) findResponse(ctx context.Context, id uuid.UUID) (*response.ReservationResponse, error) {
	res, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("get reservation", err)
	}
	if res == nil {
		return nil, apperror.NotFound("reservation", id.String())
	}
	resp := response.ReservationToResponse(res)
	return &resp, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
