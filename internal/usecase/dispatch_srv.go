package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotel-booking/internal/apperror"
	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/internal/integration/notify"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Action is the one-shot side effect guarded by the ledger.
type Action func(ctx context.Context) error

type DispatchService interface {
	// Dispatch runs action at most once successfully per key. A key that
	// already has a sent entry returns that entry without calling action.
	Dispatch(ctx context.Context, key string, kind entity.DispatchKind, reservationID *uuid.UUID, action Action) (*entity.DispatchEntry, error)

	// Notify dispatches the guest notification for kind on res.
	Notify(ctx context.Context, kind entity.DispatchKind, res *entity.Reservation) (*entity.DispatchEntry, error)

	// Trigger runs Notify on a background goroutine tracked by Wait.
	Trigger(kind entity.DispatchKind, res *entity.Reservation)

	// Retry is the operator path for re-sending a notification.
	Retry(ctx context.Context, reservationID string, req *request.RetryDispatchRequest) (*response.DispatchResponse, error)

	History(ctx context.Context, reservationID uuid.UUID) ([]*entity.DispatchEntry, error)

	// Redeliver re-runs notifications that failed and were never sent. It
	// returns how many were delivered this time.
	Redeliver(ctx context.Context) (int, error)

	// Wait blocks until every triggered dispatch has finished.
	Wait()
}

const (
	asyncDispatchTimeout = 30 * time.Second
	redeliveryBatch      = 50

	// dispatchSendBudget bounds one run of an action with all its retries.
	// A claim outlives it so an abandoned claim expires on its own.
	dispatchSendBudget    = 30 * time.Second
	dispatchClaimTTL      = 2 * dispatchSendBudget
	dispatchRecordTimeout = 10 * time.Second
)

var errDispatchInFlight = errors.New("dispatch already in progress")

type dispatchService struct {
	repo            *repository.Repository
	sender          notify.Sender
	maxAttempts     int
	baseBackoff     time.Duration
	maxRedeliveries int
	log             *zap.Logger

	inflight singleflight.Group
	wg       sync.WaitGroup
}

func NewDispatchService(repo *repository.Repository, sender notify.Sender, config utils.DispatchConfig, log *zap.Logger) DispatchService {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &dispatchService{
		repo:            repo,
		sender:          sender,
		maxAttempts:     maxAttempts,
		baseBackoff:     config.BaseBackoff,
		maxRedeliveries: config.MaxRedeliveries,
		log:             log.With(zap.String("service", "dispatch")),
	}
}

func (s *dispatchService) Dispatch(ctx context.Context, key string, kind entity.DispatchKind, reservationID *uuid.UUID, action Action) (*entity.DispatchEntry, error) {
	// callers in this process share one run per key; the claim covers other processes
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.dispatch(ctx, key, kind, reservationID, action)
	})
	entry, _ := v.(*entity.DispatchEntry)
	return entry, err
}

// dispatch claims key in a short transaction, runs action with no transaction
// open and records the outcome in a second one.
func (s *dispatchService) dispatch(ctx context.Context, key string, kind entity.DispatchKind, reservationID *uuid.UUID, action Action) (*entity.DispatchEntry, error) {
	claimID := uuid.New()
	var sent *entity.DispatchEntry

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Dispatch.LockKey(ctx, key); err != nil {
			return err
		}
		var err error
		if sent, err = s.repo.Dispatch.FindSent(ctx, key); err != nil || sent != nil {
			return err
		}
		claimed, err := s.repo.Dispatch.Claim(ctx, key, claimID, dispatchClaimTTL)
		if err != nil {
			return err
		}
		if !claimed {
			return errDispatchInFlight
		}
		return nil
	})
	switch {
	case errors.Is(err, errDispatchInFlight):
		s.log.Info("Dispatch already in progress elsewhere", zap.String("key", key))
		return nil, apperror.Transient("dispatch "+key, err)
	case err != nil:
		s.log.Warn("Dispatch could not be claimed", zap.String("key", key), zap.Error(err))
		return nil, storageError("dispatch "+key, err)
	case sent != nil:
		return sent, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, dispatchSendBudget)
	attempts, actionErr := s.run(sendCtx, key, action)
	cancel()

	entry := &entity.DispatchEntry{
		ID:             uuid.New(),
		IdempotencyKey: key,
		ReservationID:  reservationID,
		Kind:           kind,
		Outcome:        entity.DispatchOutcomeSent,
		Attempts:       attempts,
	}
	if actionErr != nil {
		msg := actionErr.Error()
		entry.Outcome = entity.DispatchOutcomeFailed
		entry.LastError = &msg
	}

	// the outcome is recorded even when the caller's ctx ended during the send
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchRecordTimeout)
	defer cancel()
	err = s.repo.Tx.WithinTx(recordCtx, func(ctx context.Context) error {
		if err := s.repo.Dispatch.LockKey(ctx, key); err != nil {
			return err
		}
		if err := s.repo.Dispatch.Record(ctx, entry); err != nil {
			return err
		}
		return s.repo.Dispatch.ReleaseClaim(ctx, key, claimID)
	})
	if err != nil {
		if repository.IsConstraint(err, repository.ConstraintDispatchSent) {
			if sent, findErr := s.repo.Dispatch.FindSent(recordCtx, key); findErr == nil && sent != nil {
				return sent, nil
			}
		}
		s.log.Warn("Dispatch could not be recorded", zap.String("key", key), zap.Error(err))
		return nil, storageError("dispatch "+key, err)
	}

	if actionErr != nil {
		s.log.Warn("Dispatch failed",
			zap.String("key", key),
			zap.Int("attempts", entry.Attempts),
			zap.Error(actionErr),
		)
		return entry, fmt.Errorf("dispatch %s failed after %d attempts: %w", key, entry.Attempts, actionErr)
	}

	s.log.Info("Dispatch sent", zap.String("key", key), zap.Int("attempts", entry.Attempts))
	return entry, nil
}

// run invokes action until it succeeds, fails permanently or the attempt bound
// is reached. Backoff doubles after each failure.
func (s *dispatchService) run(ctx context.Context, key string, action Action) (int, error) {
	var err error
	backoff := s.baseBackoff

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = action(ctx); err == nil {
			return attempt, nil
		}
		if isPermanent(err) || attempt == s.maxAttempts {
			return attempt, err
		}

		s.log.Debug("Dispatch attempt failed, retrying",
			zap.String("key", key),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
		backoff *= 2
	}
	return s.maxAttempts, err
}

func isPermanent(err error) bool {
	return errors.Is(err, notify.ErrRejected) || isCanceled(err)
}

func (s *dispatchService) Notify(ctx context.Context, kind entity.DispatchKind, res *entity.Reservation) (*entity.DispatchEntry, error) {
	msg := notificationFor(kind, res)
	return s.Dispatch(ctx, entity.DispatchKey(kind, res.ID), kind, &res.ID, func(ctx context.Context) error {
		return s.sender.Send(ctx, msg)
	})
}

func (s *dispatchService) Trigger(kind entity.DispatchKind, res *entity.Reservation) {
	snapshot := *res

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), asyncDispatchTimeout)
		defer cancel()

		if _, err := s.Notify(ctx, kind, &snapshot); err != nil {
			s.log.Warn("Triggered dispatch did not complete",
				zap.String("kind", string(kind)),
				zap.String("reservation_id", snapshot.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *dispatchService) Retry(ctx context.Context, reservationID string, req *request.RetryDispatchRequest) (*response.DispatchResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}
	id, err := parseID("id", reservationID)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.Reservation.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("retry dispatch", err)
	}
	if res == nil {
		return nil, apperror.NotFound("reservation", reservationID)
	}

	entry, err := s.Notify(ctx, entity.DispatchKind(req.Kind), res)
	if entry == nil {
		return nil, err
	}
	if err != nil && apperror.KindOf(err) != apperror.KindInternal {
		return nil, err
	}

	resp := response.DispatchToResponse(entry)
	return &resp, nil
}

func (s *dispatchService) History(ctx context.Context, reservationID uuid.UUID) ([]*entity.DispatchEntry, error) {
	entries, err := s.repo.Dispatch.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, storageError("dispatch history", err)
	}
	return entries, nil
}

func (s *dispatchService) Redeliver(ctx context.Context) (int, error) {
	if s.maxRedeliveries < 1 {
		return 0, nil
	}

	pending, err := s.repo.Dispatch.ListUndelivered(ctx, s.maxRedeliveries, redeliveryBatch)
	if err != nil {
		return 0, storageError("list undelivered dispatches", err)
	}

	delivered := 0
	for _, e := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		res, err := s.repo.Reservation.FindByID(ctx, *e.ReservationID)
		if err != nil {
			return delivered, storageError("redeliver dispatch", err)
		}
		if res == nil {
			continue
		}

		entry, err := s.Notify(ctx, e.Kind, res)
		if err != nil {
			s.log.Debug("Redelivery failed", zap.String("key", e.IdempotencyKey), zap.Error(err))
			continue
		}
		if entry.Outcome == entity.DispatchOutcomeSent {
			delivered++
		}
	}

	if len(pending) > 0 {
		s.log.Info("Redelivery sweep finished", zap.Int("pending", len(pending)), zap.Int("delivered", delivered))
	}
	return delivered, nil
}

func (s *dispatchService) Wait() {
	s.wg.Wait()
}

func notificationFor(kind entity.DispatchKind, res *entity.Reservation) notify.Message {
	payload := map[string]any{
		"reservation_id":    res.ID.String(),
		"confirmation_code": res.ConfirmationCode,
		"guest_name":        res.Guest.FullName(),
		"check_in":          res.CheckIn.Format(utils.DateLayout),
		"check_out":         res.CheckOut.Format(utils.DateLayout),
		"total":             res.Total.StringFixed(2),
	}
	if kind == entity.DispatchBookingCancelled && res.CancellationReason != nil {
		payload["reason"] = *res.CancellationReason
	}
	return notify.Message{
		Kind:      string(kind),
		Recipient: res.Guest.Email,
		Payload:   payload,
	}
}
