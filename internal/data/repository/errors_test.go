package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslatePgError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       error
		constraint string
	}{
		{
			name:       "unique violation on confirmation code",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: ConstraintConfirmationCode},
			want:       ErrDuplicate,
			constraint: ConstraintConfirmationCode,
		},
		{
			name:       "unique violation on sent dispatch key",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: ConstraintDispatchSent}),
			want:       ErrDuplicate,
			constraint: ConstraintDispatchSent,
		},
		{
			name: "exclusion violation",
			err:  &pgconn.PgError{Code: "23P01", ConstraintName: "reservations_no_overlap"},
			want: ErrUnitUnavailable,
		},
		{
			name: "lock not available",
			err:  &pgconn.PgError{Code: "55P03"},
			want: ErrLockTimeout,
		},
		{
			name: "query canceled by lock_timeout",
			err:  &pgconn.PgError{Code: "57014"},
			want: ErrLockTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translatePgError(tt.err)

			assert.ErrorIs(t, got, tt.want)
			if tt.constraint != "" {
				assert.True(t, IsConstraint(got, tt.constraint))
				assert.False(t, IsConstraint(got, ConstraintIntentID))
			}
		})
	}
}

func TestTranslatePgError_PassesOtherErrorsThrough(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	assert.Same(t, pgErr, translatePgError(pgErr))

	plain := errors.New("connection reset")
	assert.Same(t, plain, translatePgError(plain))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(translatePgError(&pgconn.PgError{Code: "55P03"})))
	assert.True(t, IsTimeout(fmt.Errorf("lock unit: %w", ErrLockTimeout)))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(ErrUnitUnavailable))
}

func TestLockTimeoutSQL(t *testing.T) {
	assert.Equal(t, "SET LOCAL lock_timeout = 3000", lockTimeoutSQL(3*time.Second))
	assert.Equal(t, "SET LOCAL lock_timeout = 1", lockTimeoutSQL(0))
}
