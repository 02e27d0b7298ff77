package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnitUnavailable means an active reservation already holds the dates.
	ErrUnitUnavailable = errors.New("unit no longer available")
	// ErrLockTimeout means a row or advisory lock was not granted in time.
	ErrLockTimeout = errors.New("lock wait timed out")
	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotInTx is returned by lock operations called outside WithinTx.
	ErrNotInTx = errors.New("operation requires a transaction")
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgLockNotAvailable   = "55P03"
	pgQueryCanceled      = "57014"
)

// translatePgError maps Postgres error codes onto repository sentinels.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return &DuplicateError{Constraint: pgErr.ConstraintName}
	case pgExclusionViolation:
		return ErrUnitUnavailable
	case pgLockNotAvailable, pgQueryCanceled:
		return ErrLockTimeout
	}
	return err
}

// Unique constraints the services react to.
const (
	ConstraintConfirmationCode = "reservations_confirmation_code_key"
	ConstraintIntentID         = "payments_processor_intent_id_key"
	ConstraintDispatchSent     = "dispatch_ledger_sent_key"
)

// DuplicateError is a unique violation on Constraint. It matches ErrDuplicate.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key violates %s", e.Constraint)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// IsConstraint reports whether err is a unique violation on the named constraint.
func IsConstraint(err error, name string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == name
}

// lockTimeoutSQL renders SET LOCAL lock_timeout for d (pg wants an int of ms).
func lockTimeoutSQL(d time.Duration) string {
	ms := d.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = %d", ms)
}

// IsTimeout reports ErrLockTimeout or a context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded)
}
