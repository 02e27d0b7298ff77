package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func stay(in, out string) DateRange { return DateRange{CheckIn: day(in), CheckOut: day(out)} }

func TestReservationTransitions(t *testing.T) {
	all := []ReservationStatus{
		ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCheckedIn,
		ReservationStatusCheckedOut, ReservationStatusCancelled,
	}
	allowed := map[ReservationStatus][]ReservationStatus{
		ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
		ReservationStatusConfirmed: {ReservationStatusCheckedIn, ReservationStatusCancelled},
		ReservationStatusCheckedIn: {ReservationStatusCheckedOut, ReservationStatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, contains(allowed[from], to), from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, ReservationStatusCheckedOut.IsTerminal())
	assert.True(t, ReservationStatusCancelled.IsTerminal())
	assert.False(t, ReservationStatusCheckedIn.IsTerminal())
}

func contains(list []ReservationStatus, s ReservationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestActiveStatuses(t *testing.T) {
	assert.True(t, ReservationStatusPending.IsActive())
	assert.True(t, ReservationStatusCheckedIn.IsActive())
	assert.False(t, ReservationStatusCheckedOut.IsActive())
	assert.False(t, ReservationStatusCancelled.IsActive())
}

func TestParseReservationStatus(t *testing.T) {
	st, ok := ParseReservationStatus(" Checked_In ")
	assert.True(t, ok)
	assert.Equal(t, ReservationStatusCheckedIn, st)

	_, ok = ParseReservationStatus("archived")
	assert.False(t, ok)
}

func TestDateRangeOverlaps(t *testing.T) {
	base := stay("2025-06-01", "2025-06-03")

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"same", stay("2025-06-01", "2025-06-03"), true},
		{"inside", stay("2025-06-02", "2025-06-03"), true},
		{"covering", stay("2025-05-30", "2025-06-05"), true},
		{"tail", stay("2025-06-02", "2025-06-04"), true},
		{"touching after", stay("2025-06-03", "2025-06-05"), false},
		{"touching before", stay("2025-05-30", "2025-06-01"), false},
		{"disjoint", stay("2025-07-01", "2025-07-02"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestDateRangeNights(t *testing.T) {
	assert.Equal(t, 2, stay("2025-06-01", "2025-06-03").Nights())
	assert.Equal(t, 1, stay("2025-03-09", "2025-03-10").Nights())
	assert.Equal(t, 31, stay("2025-12-15", "2026-01-15").Nights())
}

func TestDispatchKey(t *testing.T) {
	res := Reservation{}
	key := DispatchKey(DispatchBookingConfirmed, res.ID)
	assert.Equal(t, "booking-confirmed:00000000-0000-0000-0000-000000000000", key)
}

func TestDecodePaymentEvent(t *testing.T) {
	ev, err := DecodePaymentEvent([]byte(`{"id":"evt_1","kind":"payment_intent.succeeded","intent_id":"pi_1"}`))
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded{EventID: "evt_1", IntentID: "pi_1"}, ev)

	ev, err = DecodePaymentEvent([]byte(`{"id":"evt_2","kind":"payment_intent.payment_failed","intent_id":"pi_1","payload":{"failure_message":"card_declined"}}`))
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed{EventID: "evt_2", IntentID: "pi_1", Reason: "card_declined"}, ev)

	ev, err = DecodePaymentEvent([]byte(`{"id":"evt_3","kind":"charge.refunded"}`))
	require.NoError(t, err)
	assert.Equal(t, UnknownPaymentEvent{EventID: "evt_3", RawKind: "charge.refunded"}, ev)
	assert.Equal(t, "charge.refunded", ev.Kind())

	_, err = DecodePaymentEvent([]byte(`{"id":"evt_4","kind":"payment_intent.succeeded"}`))
	assert.Error(t, err)

	_, err = DecodePaymentEvent([]byte(`not json`))
	assert.Error(t, err)
}
