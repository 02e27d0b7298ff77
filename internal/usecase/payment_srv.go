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
	"hotel-booking/internal/integration/processor"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error)

	// ApplyEvent reconciles a verified processor event. Unknown intents and
	// unrecognized kinds are dropped without error.
	ApplyEvent(ctx context.Context, event entity.PaymentEvent) error
}

type paymentService struct {
	repo      *repository.Repository
	processor processor.Processor
	dispatch  DispatchService
	currency  string
	timeout   time.Duration
	log       *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	proc processor.Processor,
	dispatch DispatchService,
	booking utils.BookingConfig,
	payment utils.PaymentConfig,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:      repo,
		processor: proc,
		dispatch:  dispatch,
		currency:  strings.ToLower(booking.Currency),
		timeout:   payment.Timeout,
		log:       log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	errs := utils.ValidateStruct(req)
	if !req.Amount.IsPositive() {
		errs = mergeErrors(errs, map[string]string{"amount": "Must be greater than 0"})
	}
	if len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	resID, err := parseID("reservation_id", req.ReservationID)
	if err != nil {
		return nil, err
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	var (
		res     *entity.Reservation
		attempt int
	)
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.payableReservation(ctx, resID)
		if err != nil {
			return err
		}
		if !req.Amount.Round(2).Equal(res.Total) {
			return apperror.ValidationField("amount", "Must equal the reservation total of "+res.Total.StringFixed(2))
		}
		attempt, err = s.nextAttempt(ctx, resID)
		return err
	})
	if err != nil {
		return nil, paymentError("create payment intent", err)
	}

	receipt := res.Guest.Email
	if req.ReceiptEmail != nil && *req.ReceiptEmail != "" {
		receipt = *req.ReceiptEmail
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = intentKey(res.ID, attempt)
	}

	intent, err := s.issueIntent(ctx, processor.IntentRequest{
		Amount:         res.Total,
		Currency:       currency,
		ReservationID:  res.ID,
		ReceiptEmail:   receipt,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	var record *entity.PaymentRecord
	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.recordIntent(ctx, resID, intent, currency)
		return err
	})
	if err != nil {
		return nil, paymentError("record payment intent", err)
	}

	return &response.PaymentIntentResponse{
		ReservationID: res.ID.String(),
		IntentID:      record.IntentID,
		ClientSecret:  intent.ClientSecret,
		Amount:        record.Amount.StringFixed(2),
		Currency:      record.Currency,
		Status:        record.Status,
	}, nil
}

// intentKey names the processor request for one payment attempt, so retries
// of the same attempt resolve to the same intent.
func intentKey(reservationID uuid.UUID, attempt int) string {
	return fmt.Sprintf("reservation-%s-attempt-%d", reservationID, attempt)
}

// payableReservation locks the reservation and checks it can still take a payment.
func (s *paymentService) payableReservation(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	res, err := s.repo.Reservation.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperror.NotFound("reservation", id.String())
	}
	if res.Paid {
		return nil, apperror.AlreadyPaid(id.String())
	}
	if res.Status == entity.ReservationStatusCancelled || res.Status == entity.ReservationStatusCheckedOut {
		return nil, apperror.Conflict("reservation", id.String(), "reservation is "+string(res.Status)+" and cannot be paid")
	}
	return res, nil
}

// nextAttempt returns the position of the open pending record, or the next
// position when every earlier record failed.
func (s *paymentService) nextAttempt(ctx context.Context, reservationID uuid.UUID) (int, error) {
	records, err := s.repo.Payment.ListByReservation(ctx, reservationID)
	if err != nil {
		return 0, err
	}
	for i, rec := range records {
		switch rec.Status {
		case entity.PaymentStatusPending:
			return i, nil
		case entity.PaymentStatusCompleted:
			return 0, apperror.AlreadyPaid(reservationID.String())
		}
	}
	return len(records), nil
}

func (s *paymentService) issueIntent(ctx context.Context, req processor.IntentRequest) (*processor.Intent, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	intent, err := s.processor.CreateIntent(ctx, req)
	if err == nil {
		return intent, nil
	}
	id := req.ReservationID.String()
	switch {
	case errors.Is(err, processor.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("Payment processor unavailable", zap.String("reservation_id", id), zap.Error(err))
		return nil, apperror.Transient("payment intent creation", err)
	case errors.Is(err, processor.ErrRejected):
		return nil, &apperror.Error{Kind: apperror.KindValidation, Message: "payment processor rejected the request", Err: err}
	}
	s.log.Error("Failed to create payment intent", zap.String("reservation_id", id), zap.Error(err))
	return nil, err
}

// recordIntent stores intent as the reservation's pending payment. A replayed
// intent returns its existing record; a second open intent is refused.
func (s *paymentService) recordIntent(ctx context.Context, reservationID uuid.UUID, intent *processor.Intent, currency string) (*entity.PaymentRecord, error) {
	res, err := s.payableReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Payment.FindByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.ReservationID != reservationID {
			return nil, apperror.Conflict("payment", intent.ID, "payment intent belongs to another reservation")
		}
		s.log.Info("Payment intent already recorded", zap.String("intent_id", intent.ID))
		return existing, nil
	}

	records, err := s.repo.Payment.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Status == entity.PaymentStatusPending {
			s.log.Warn("Refusing second pending payment intent",
				zap.String("reservation_id", reservationID.String()),
				zap.String("pending_intent_id", rec.IntentID),
				zap.String("intent_id", intent.ID),
			)
			return nil, apperror.Conflict("payment", rec.IntentID, "a payment is already pending for this reservation")
		}
	}

	record := &entity.PaymentRecord{
		Base:          entity.Base{ID: uuid.New()},
		ReservationID: reservationID,
		IntentID:      intent.ID,
		Amount:        res.Total,
		Currency:      currency,
		Status:        entity.PaymentStatusPending,
	}
	created, err := s.repo.Payment.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperror.Conflict("payment", intent.ID, "payment intent belongs to another reservation")
	}

	s.log.Info("Payment intent created",
		zap.String("reservation_id", reservationID.String()),
		zap.String("intent_id", intent.ID),
		zap.String("amount", record.Amount.StringFixed(2)),
	)
	return record, nil
}

func (s *paymentService) ApplyEvent(ctx context.Context, event entity.PaymentEvent) error {
	switch e := event.(type) {
	case entity.PaymentSucceeded:
		return s.applySucceeded(ctx, e)
	case entity.PaymentFailed:
		return s.applyFailed(ctx, e)
	case entity.UnknownPaymentEvent:
		s.log.Info("Ignoring unrecognized payment event", zap.String("event_id", e.EventID), zap.String("kind", e.RawKind))
		return nil
	default:
		s.log.Info("Ignoring payment event", zap.String("kind", event.Kind()))
		return nil
	}
}

func (s *paymentService) applySucceeded(ctx context.Context, e entity.PaymentSucceeded) error {
	var paid *entity.Reservation

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Payment.FindByIntentIDForUpdate(ctx, e.IntentID)
		if err != nil {
			return err
		}
		if rec == nil {
			s.log.Warn("Dropping payment event for unknown intent", zap.String("intent_id", e.IntentID), zap.String("event_id", e.EventID))
			return nil
		}
		if rec.Status == entity.PaymentStatusCompleted {
			s.log.Debug("Payment already completed", zap.String("intent_id", e.IntentID))
			return nil
		}

		if _, err := s.repo.Payment.UpdateStatus(ctx, rec.ID, rec.Status, entity.PaymentStatusCompleted); err != nil {
			return err
		}
		flipped, err := s.repo.Reservation.MarkPaid(ctx, rec.ReservationID)
		if err != nil {
			return err
		}

		s.log.Info("Payment completed",
			zap.String("intent_id", e.IntentID),
			zap.String("reservation_id", rec.ReservationID.String()),
			zap.String("amount", rec.Amount.StringFixed(2)),
		)

		if flipped {
			paid, err = s.repo.Reservation.FindByID(ctx, rec.ReservationID)
			return err
		}
		return nil
	})
	if err != nil {
		return storageError("apply payment success", err)
	}

	if paid != nil {
		s.dispatch.Trigger(entity.DispatchPaymentNotification, paid)
	}
	return nil
}

func (s *paymentService) applyFailed(ctx context.Context, e entity.PaymentFailed) error {
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Payment.FindByIntentIDForUpdate(ctx, e.IntentID)
		if err != nil {
			return err
		}
		if rec == nil {
			s.log.Warn("Dropping payment event for unknown intent", zap.String("intent_id", e.IntentID), zap.String("event_id", e.EventID))
			return nil
		}
		// completed is final; a late failure never downgrades it
		if rec.Status != entity.PaymentStatusPending {
			return nil
		}

		if _, err := s.repo.Payment.UpdateStatus(ctx, rec.ID, entity.PaymentStatusPending, entity.PaymentStatusFailed); err != nil {
			return err
		}
		s.log.Info("Payment failed",
			zap.String("intent_id", e.IntentID),
			zap.String("reservation_id", rec.ReservationID.String()),
			zap.String("reason", e.Reason),
		)
		return nil
	})
	if err != nil {
		return storageError("apply payment failure", err)
	}
	return nil
}
