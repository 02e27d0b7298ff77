package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DispatchKind string

const (
	DispatchBookingConfirmed    DispatchKind = "booking-confirmed"
	DispatchBookingCancelled    DispatchKind = "booking-cancelled"
	DispatchPaymentNotification DispatchKind = "payment-notification"
)

type DispatchOutcome string

const (
	DispatchOutcomeSent   DispatchOutcome = "sent"
	DispatchOutcomeFailed DispatchOutcome = "failed"
)

// DispatchEntry records one attempt to perform a one-shot side effect.
// At most one entry per key ever has outcome sent.
type DispatchEntry struct {
	ID             uuid.UUID       `db:"id"`
	IdempotencyKey string          `db:"idempotency_key"`
	ReservationID  *uuid.UUID      `db:"reservation_id"`
	Kind           DispatchKind    `db:"kind"`
	Outcome        DispatchOutcome `db:"outcome"`
	Attempts       int             `db:"attempts"`
	LastError      *string         `db:"last_error"`
	CreatedAt      time.Time       `db:"created_at"`
}

// DispatchKey derives the idempotency key for a logical event on a reservation.
func DispatchKey(kind DispatchKind, reservationID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", kind, reservationID.String())
}
