package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, lockTimeout time.Duration) (*Store, *repository.Repository, uuid.UUID) {
	t.Helper()
	s := New(lockTimeout)
	id := uuid.New()
	s.AddUnit(entity.Unit{ID: id, RoomNumber: "101", Type: "standard", Capacity: 2,
		NightlyRate: decimal.RequireFromString("100.00"), Status: entity.UnitStatusAvailable})
	return s, s.Repository(), id
}

func reservation(unitID uuid.UUID, code, in, out string) *entity.Reservation {
	checkIn, _ := time.Parse("2006-01-02", in)
	checkOut, _ := time.Parse("2006-01-02", out)
	return &entity.Reservation{
		Base:             entity.Base{ID: uuid.New()},
		ConfirmationCode: code,
		UnitID:           unitID,
		Guest:            entity.Guest{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		GuestCount:       1,
		Status:           entity.ReservationStatusPending,
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)
	ctx := context.Background()
	res := reservation(unitID, "AAAAAAAAAA", "2025-06-01", "2025-06-03")
	boom := errors.New("boom")

	err := repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Reservation.Create(ctx, res))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)
	ctx := context.Background()
	res := reservation(unitID, "AAAAAAAAAA", "2025-06-01", "2025-06-03")

	assert.Panics(t, func() {
		_ = repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_ = repo.Reservation.Create(ctx, res)
			panic("boom")
		})
	})

	got, err := repo.Reservation.FindByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// the unit lock is released after a panic
	err = repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.Unit.LockForBooking(ctx, unitID)
		return err
	})
	assert.NoError(t, err)
}

func TestLockForBooking_TimesOut(t *testing.T) {
	_, repo, unitID := newStore(t, 20*time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := repo.Unit.LockForBooking(ctx, unitID)
			close(held)
			<-release
			return err
		})
	}()
	<-held

	err := repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.Unit.LockForBooking(ctx, unitID)
		return err
	})
	assert.True(t, repository.IsTimeout(err))

	close(release)
	<-done
}

func TestLockForBooking_RequiresTx(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)

	_, err := repo.Unit.LockForBooking(context.Background(), unitID)
	assert.ErrorIs(t, err, repository.ErrNotInTx)
}

func TestLock_ReentrantWithinTx(t *testing.T) {
	_, repo, unitID := newStore(t, 20*time.Millisecond)

	err := repo.Tx.WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := repo.Unit.LockForBooking(ctx, unitID); err != nil {
			return err
		}
		_, err := repo.Unit.LockForBooking(ctx, unitID)
		return err
	})
	assert.NoError(t, err)
}

func TestReservationCreate_Constraints(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)
	ctx := context.Background()

	require.NoError(t, repo.Reservation.Create(ctx, reservation(unitID, "AAAAAAAAAA", "2025-06-01", "2025-06-03")))

	err := repo.Reservation.Create(ctx, reservation(unitID, "AAAAAAAAAA", "2025-07-01", "2025-07-03"))
	assert.True(t, repository.IsConstraint(err, repository.ConstraintConfirmationCode))

	err = repo.Reservation.Create(ctx, reservation(unitID, "BBBBBBBBBB", "2025-06-02", "2025-06-04"))
	assert.ErrorIs(t, err, repository.ErrUnitUnavailable)

	assert.NoError(t, repo.Reservation.Create(ctx, reservation(unitID, "CCCCCCCCCC", "2025-06-03", "2025-06-04")))
}

func TestReservationUpdateStatus_CompareAndSet(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)
	ctx := context.Background()
	res := reservation(unitID, "AAAAAAAAAA", "2025-06-01", "2025-06-03")
	require.NoError(t, repo.Reservation.Create(ctx, res))

	ok, err := repo.Reservation.UpdateStatus(ctx, res.ID, entity.ReservationStatusPending, entity.ReservationStatusConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Reservation.UpdateStatus(ctx, res.ID, entity.ReservationStatusPending, entity.ReservationStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	flipped, err := repo.Reservation.MarkPaid(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, flipped)
	flipped, err = repo.Reservation.MarkPaid(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestDispatchRecord_OneSentPerKey(t *testing.T) {
	_, repo, _ := newStore(t, time.Second)
	ctx := context.Background()

	entry := func(outcome entity.DispatchOutcome) *entity.DispatchEntry {
		return &entity.DispatchEntry{ID: uuid.New(), IdempotencyKey: "k", Kind: entity.DispatchBookingConfirmed, Outcome: outcome, Attempts: 1}
	}

	require.NoError(t, repo.Dispatch.Record(ctx, entry(entity.DispatchOutcomeFailed)))
	require.NoError(t, repo.Dispatch.Record(ctx, entry(entity.DispatchOutcomeSent)))

	err := repo.Dispatch.Record(ctx, entry(entity.DispatchOutcomeSent))
	assert.True(t, repository.IsConstraint(err, repository.ConstraintDispatchSent))

	sent, err := repo.Dispatch.FindSent(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, entity.DispatchOutcomeSent, sent.Outcome)
}

func TestPaymentCreate_IntentIDUnique(t *testing.T) {
	_, repo, unitID := newStore(t, time.Second)
	ctx := context.Background()
	res := reservation(unitID, "AAAAAAAAAA", "2025-06-01", "2025-06-03")
	require.NoError(t, repo.Reservation.Create(ctx, res))

	record := func() *entity.PaymentRecord {
		return &entity.PaymentRecord{Base: entity.Base{ID: uuid.New()}, ReservationID: res.ID, IntentID: "pi_1",
			Amount: decimal.RequireFromString("216.00"), Currency: "usd", Status: entity.PaymentStatusPending}
	}

	created, err := repo.Payment.Create(ctx, record())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Payment.Create(ctx, record())
	require.NoError(t, err)
	assert.False(t, created)

	_, err = repo.Payment.FindByIntentIDForUpdate(ctx, "pi_1")
	assert.ErrorIs(t, err, repository.ErrNotInTx)
}

func TestDispatchClaim_HeldUntilReleasedOrExpired(t *testing.T) {
	_, repo, _ := newStore(t, time.Second)
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	ok, err := repo.Dispatch.Claim(ctx, "k", first, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Dispatch.Claim(ctx, "k", second, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a stranger's release leaves the claim alone
	require.NoError(t, repo.Dispatch.ReleaseClaim(ctx, "k", second))
	ok, err = repo.Dispatch.Claim(ctx, "k", second, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Dispatch.ReleaseClaim(ctx, "k", first))
	ok, err = repo.Dispatch.Claim(ctx, "k", second, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// zero ttl expires at once
	ok, err = repo.Dispatch.Claim(ctx, "k", first, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatchClaim_RolledBackWithTx(t *testing.T) {
	_, repo, _ := newStore(t, time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := repo.Dispatch.Claim(ctx, "k", uuid.New(), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := repo.Dispatch.Claim(ctx, "k", uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReservationFindByIDForUpdate_LocksRow(t *testing.T) {
	_, repo, unitID := newStore(t, 20*time.Millisecond)
	ctx := context.Background()
	res := reservation(unitID, "CCCCCCCCCC", "2025-06-01", "2025-06-03")
	require.NoError(t, repo.Reservation.Create(ctx, res))

	_, err := repo.Reservation.FindByIDForUpdate(ctx, res.ID)
	assert.ErrorIs(t, err, repository.ErrNotInTx)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
			got, err := repo.Reservation.FindByIDForUpdate(ctx, res.ID)
			assert.NoError(t, err)
			assert.Equal(t, res.ID, got.ID)
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err = repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := repo.Reservation.FindByIDForUpdate(ctx, res.ID)
		return err
	})
	assert.True(t, repository.IsTimeout(err))

	close(release)
	<-done
}
