package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type DispatchRepository interface {
	// LockKey serializes dispatchers of one key until the transaction ends.
	LockKey(ctx context.Context, key string) error
	FindSent(ctx context.Context, key string) (*entity.DispatchEntry, error)
	Record(ctx context.Context, e *entity.DispatchEntry) error

	// Claim marks key as being dispatched by claimID for ttl. It reports false
	// while another unexpired claim holds the key.
	Claim(ctx context.Context, key string, claimID uuid.UUID, ttl time.Duration) (bool, error)
	// ReleaseClaim drops claimID's claim on key.
	ReleaseClaim(ctx context.Context, key string, claimID uuid.UUID) error

	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*entity.DispatchEntry, error)

	// ListUndelivered returns the latest failed entry of each reservation key
	// that was never sent and has failed fewer than maxFailures times.
	ListUndelivered(ctx context.Context, maxFailures, limit int) ([]*entity.DispatchEntry, error)
}

type dispatchRepository struct {
	db          database.PgxIface
	lockTimeout time.Duration
	log         *zap.Logger
}

func NewDispatchRepository(db database.PgxIface, lockTimeout time.Duration, log *zap.Logger) DispatchRepository {
	return &dispatchRepository{
		db:          db,
		lockTimeout: lockTimeout,
		log:         log.With(zap.String("repository", "dispatch")),
	}
}

const dispatchColumns = `id, idempotency_key, reservation_id, kind, outcome, attempts, last_error, created_at`

func scanDispatch(row pgx.Row) (*entity.DispatchEntry, error) {
	var e entity.DispatchEntry
	if err := row.Scan(
		&e.ID,
		&e.IdempotencyKey,
		&e.ReservationID,
		&e.Kind,
		&e.Outcome,
		&e.Attempts,
		&e.LastError,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *dispatchRepository) LockKey(ctx context.Context, key string) error {
	if !database.InTx(ctx) {
		return ErrNotInTx
	}
	q := database.QuerierFrom(ctx, r.db)

	if _, err := q.Exec(ctx, lockTimeoutSQL(r.lockTimeout)); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		err = translatePgError(err)
		if !errors.Is(err, ErrLockTimeout) {
			r.log.Error("Failed to take dispatch lock", zap.Error(err), zap.String("key", key))
		}
		return fmt.Errorf("lock dispatch key %s: %w", key, err)
	}
	return nil
}

func (r *dispatchRepository) FindSent(ctx context.Context, key string) (*entity.DispatchEntry, error) {
	query := `SELECT ` + dispatchColumns + ` FROM dispatch_ledger WHERE idempotency_key = $1 AND outcome = 'sent'`

	e, err := scanDispatch(database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find sent dispatch", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("find sent dispatch %s: %w", key, err)
	}
	return e, nil
}

func (r *dispatchRepository) Record(ctx context.Context, e *entity.DispatchEntry) error {
	query := `
		INSERT INTO dispatch_ledger (id, idempotency_key, reservation_id, kind, outcome, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := database.QuerierFrom(ctx, r.db).QueryRow(ctx, query,
		e.ID, e.IdempotencyKey, e.ReservationID, e.Kind, e.Outcome, e.Attempts, e.LastError,
	).Scan(&e.CreatedAt)
	if err != nil {
		err = translatePgError(err)
		if !IsConstraint(err, ConstraintDispatchSent) {
			r.log.Error("Failed to record dispatch", zap.Error(err), zap.String("key", e.IdempotencyKey))
		}
		return fmt.Errorf("record dispatch %s: %w", e.IdempotencyKey, err)
	}
	return nil
}

func (r *dispatchRepository) Claim(ctx context.Context, key string, claimID uuid.UUID, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO dispatch_claims (idempotency_key, claim_id, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (idempotency_key) DO UPDATE
		SET claim_id = EXCLUDED.claim_id, expires_at = EXCLUDED.expires_at
		WHERE dispatch_claims.expires_at <= NOW()`

	tag, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query, key, claimID, ttl.Seconds())
	if err != nil {
		err = translatePgError(err)
		r.log.Error("Failed to claim dispatch", zap.Error(err), zap.String("key", key))
		return false, fmt.Errorf("claim dispatch %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *dispatchRepository) ReleaseClaim(ctx context.Context, key string, claimID uuid.UUID) error {
	query := `DELETE FROM dispatch_claims WHERE idempotency_key = $1 AND claim_id = $2`

	if _, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query, key, claimID); err != nil {
		r.log.Error("Failed to release dispatch claim", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("release dispatch claim %s: %w", key, translatePgError(err))
	}
	return nil
}

func (r *dispatchRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*entity.DispatchEntry, error) {
	query := `SELECT ` + dispatchColumns + ` FROM dispatch_ledger WHERE reservation_id = $1 ORDER BY created_at ASC`

	rows, err := database.QuerierFrom(ctx, r.db).Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to list dispatches", zap.Error(err), zap.String("reservation_id", reservationID.String()))
		return nil, fmt.Errorf("list dispatches for reservation %s: %w", reservationID, err)
	}
	defer rows.Close()

	var entries []*entity.DispatchEntry
	for rows.Next() {
		e, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *dispatchRepository) ListUndelivered(ctx context.Context, maxFailures, limit int) ([]*entity.DispatchEntry, error) {
	query := `
		SELECT DISTINCT ON (d.idempotency_key)
			d.id, d.idempotency_key, d.reservation_id, d.kind, d.outcome, d.attempts, d.last_error, d.created_at
		FROM dispatch_ledger d
		WHERE d.outcome = 'failed'
			AND d.reservation_id IS NOT NULL
			AND NOT EXISTS (
				SELECT 1 FROM dispatch_ledger s
				WHERE s.idempotency_key = d.idempotency_key AND s.outcome = 'sent'
			)
			AND (
				SELECT COUNT(*) FROM dispatch_ledger f
				WHERE f.idempotency_key = d.idempotency_key AND f.outcome = 'failed'
			) < $1
		ORDER BY d.idempotency_key, d.created_at DESC
		LIMIT $2`

	rows, err := database.QuerierFrom(ctx, r.db).Query(ctx, query, maxFailures, limit)
	if err != nil {
		r.log.Error("Failed to list undelivered dispatches", zap.Error(err))
		return nil, fmt.Errorf("list undelivered dispatches: %w", err)
	}
	defer rows.Close()

	var entries []*entity.DispatchEntry
	for rows.Next() {
		e, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
