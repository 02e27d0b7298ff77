package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending    ReservationStatus = "pending"
	ReservationStatusConfirmed  ReservationStatus = "confirmed"
	ReservationStatusCheckedIn  ReservationStatus = "checked_in"
	ReservationStatusCheckedOut ReservationStatus = "checked_out"
	ReservationStatusCancelled  ReservationStatus = "cancelled"
)

// DefaultCancellationReason is recorded when a cancellation carries no reason.
const DefaultCancellationReason = "cancelled by operator"

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCheckedIn, ReservationStatusCancelled},
	ReservationStatusCheckedIn: {ReservationStatusCheckedOut, ReservationStatusCancelled},
}

// ActiveReservationStatuses hold a unit's dates against other bookings.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusCheckedIn,
}

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch st := ReservationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCheckedIn,
		ReservationStatusCheckedOut, ReservationStatusCancelled:
		return st, true
	}
	return "", false
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReservationStatus) IsActive() bool {
	for _, active := range ActiveReservationStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsTerminal is true for states with no outgoing transitions.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// DateRange is a half-open stay [CheckIn, CheckOut) at day granularity.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Overlaps applies the half-open interval rule: touching ranges do not overlap.
func (d DateRange) Overlaps(other DateRange) bool {
	return d.CheckIn.Before(other.CheckOut) && d.CheckOut.After(other.CheckIn)
}

// Nights counts whole days between check-in and check-out.
func (d DateRange) Nights() int {
	in := time.Date(d.CheckIn.Year(), d.CheckIn.Month(), d.CheckIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(d.CheckOut.Year(), d.CheckOut.Month(), d.CheckOut.Day(), 0, 0, 0, 0, time.UTC)
	return int(out.Sub(in).Hours() / 24)
}

type Guest struct {
	FirstName       string  `db:"first_name"`
	LastName        string  `db:"last_name"`
	Email           string  `db:"email"`
	Phone           *string `db:"phone_number"`
	SpecialRequests *string `db:"special_requests"`
}

func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

type Reservation struct {
	Base
	ConfirmationCode   string            `db:"confirmation_code"`
	UnitID             uuid.UUID         `db:"unit_id"`
	UserID             *uuid.UUID        `db:"user_id"`
	Guest              Guest             `db:"-"`
	CheckIn            time.Time         `db:"check_in_date"`
	CheckOut           time.Time         `db:"check_out_date"`
	GuestCount         int               `db:"guest_count"`
	Subtotal           decimal.Decimal   `db:"subtotal"`
	Tax                decimal.Decimal   `db:"tax"`
	Total              decimal.Decimal   `db:"total_price"`
	Paid               bool              `db:"paid"`
	Status             ReservationStatus `db:"status"`
	CancellationReason *string           `db:"cancellation_reason"`
}

func (r *Reservation) Stay() DateRange {
	return DateRange{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// ReservationFilter drives the operator listing.
type ReservationFilter struct {
	Status *ReservationStatus
	Search string
	Limit  int
	Offset int
}

type GuestHistoryScope string

const (
	GuestHistoryAll      GuestHistoryScope = ""
	GuestHistoryUpcoming GuestHistoryScope = "upcoming"
	GuestHistoryPast     GuestHistoryScope = "past"
)
