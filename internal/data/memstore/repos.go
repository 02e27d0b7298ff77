package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"

	"github.com/google/uuid"
)

type unitRepo struct{ s *Store }

func (r *unitRepo) List(_ context.Context, filter entity.UnitFilter) ([]*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	units := r.s.matchUnits(filter.MinCapacity, filter.Type)
	sort.Slice(units, func(i, j int) bool { return units[i].RoomNumber < units[j].RoomNumber })
	return units, nil
}

func (r *unitRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *unitRepo) LockForBooking(ctx context.Context, id uuid.UUID) (*entity.Unit, error) {
	if err := r.s.lock(ctx, "unit:"+id.String()); err != nil {
		return nil, fmt.Errorf("lock unit %s: %w", id, err)
	}
	return r.FindByID(ctx, id)
}

func (r *unitRepo) SearchAvailable(_ context.Context, q entity.AvailabilityQuery) ([]*entity.Unit, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var free []*entity.Unit
	for _, u := range r.s.matchUnits(q.Guests, q.Type) {
		if !r.s.hasOverlapLocked(u.ID, q.Stay) {
			free = append(free, u)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		if c := free[i].NightlyRate.Cmp(free[j].NightlyRate); c != 0 {
			return c < 0
		}
		if free[i].RoomNumber != free[j].RoomNumber {
			return free[i].RoomNumber < free[j].RoomNumber
		}
		return free[i].ID.String() < free[j].ID.String()
	})

	total := int64(len(free))
	return page(free, q.Offset, q.Limit), total, nil
}

func (s *Store) matchUnits(minCapacity int, unitType string) []*entity.Unit {
	unitType = strings.TrimSpace(unitType)
	var out []*entity.Unit
	for _, u := range s.units {
		if u.Capacity < minCapacity {
			continue
		}
		if unitType != "" && !strings.EqualFold(u.Type, unitType) {
			continue
		}
		u := u
		out = append(out, &u)
	}
	return out
}

func (s *Store) hasOverlapLocked(unitID uuid.UUID, stay entity.DateRange) bool {
	for _, res := range s.reservations {
		if res.UnitID == unitID && res.Status.IsActive() && res.Stay().Overlaps(stay) {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

type reservationRepo struct{ s *Store }

func (r *reservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[res.UnitID]; !ok {
		return fmt.Errorf("create reservation: unit %s does not exist", res.UnitID)
	}
	for _, existing := range s.reservations {
		if existing.ConfirmationCode == res.ConfirmationCode {
			return fmt.Errorf("create reservation: %w", &repository.DuplicateError{Constraint: repository.ConstraintConfirmationCode})
		}
	}
	if res.Status.IsActive() && s.hasOverlapLocked(res.UnitID, res.Stay()) {
		return fmt.Errorf("create reservation: %w", repository.ErrUnitUnavailable)
	}

	now := s.now()
	res.CreatedAt, res.UpdatedAt = now, now
	s.reservations[res.ID] = *res

	id := res.ID
	s.journal(ctx, func() { delete(s.reservations, id) })
	return nil
}

func (r *reservationRepo) HasOverlap(_ context.Context, unitID uuid.UUID, stay entity.DateRange) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.hasOverlapLocked(unitID, stay), nil
}

func (r *reservationRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *reservationRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	if err := r.s.lock(ctx, "reservation:"+id.String()); err != nil {
		return nil, fmt.Errorf("lock reservation %s: %w", id, err)
	}
	return r.FindByID(ctx, id)
}

func (r *reservationRepo) FindByConfirmationCode(_ context.Context, code string) (*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code = strings.ToUpper(code)
	for _, res := range r.s.reservations {
		if res.ConfirmationCode == code {
			res := res
			return &res, nil
		}
	}
	return nil, nil
}

func (r *reservationRepo) List(_ context.Context, filter entity.ReservationFilter) ([]*entity.Reservation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*entity.Reservation
	for _, res := range r.s.reservations {
		if filter.Status != nil && res.Status != *filter.Status {
			continue
		}
		if search != "" && !matchesSearch(res, search) {
			continue
		}
		res := res
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})

	total := int64(len(out))
	return page(out, filter.Offset, filter.Limit), total, nil
}

func matchesSearch(res entity.Reservation, needle string) bool {
	for _, field := range []string{res.ConfirmationCode, res.Guest.FirstName, res.Guest.LastName, res.Guest.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (r *reservationRepo) ListByUser(_ context.Context, userID uuid.UUID, scope entity.GuestHistoryScope, today time.Time) ([]*entity.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Reservation
	for _, res := range r.s.reservations {
		if res.UserID == nil || *res.UserID != userID {
			continue
		}
		switch scope {
		case entity.GuestHistoryUpcoming:
			if res.CheckOut.Before(today) || !res.Status.IsActive() {
				continue
			}
		case entity.GuestHistoryPast:
			if !res.CheckOut.Before(today) {
				continue
			}
		}
		res := res
		out = append(out, &res)
	}

	sort.Slice(out, func(i, j int) bool {
		switch scope {
		case entity.GuestHistoryUpcoming:
			return out[i].CheckIn.Before(out[j].CheckIn)
		case entity.GuestHistoryPast:
			return out[i].CheckIn.After(out[j].CheckIn)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out, nil
}

func (r *reservationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ReservationStatus, reason *string) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	if to.IsActive() && !from.IsActive() && s.hasOverlapLocked(res.UnitID, res.Stay()) {
		return false, fmt.Errorf("update reservation status %s: %w", id, repository.ErrUnitUnavailable)
	}

	before := res
	res.Status = to
	if reason != nil {
		res.CancellationReason = reason
	}
	res.UpdatedAt = s.now()
	s.reservations[id] = res
	s.journal(ctx, func() { s.reservations[id] = before })
	return true, nil
}

func (r *reservationRepo) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok || res.Paid {
		return false, nil
	}
	before := res
	res.Paid = true
	res.UpdatedAt = s.now()
	s.reservations[id] = res
	s.journal(ctx, func() { s.reservations[id] = before })
	return true, nil
}

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, p *entity.PaymentRecord) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.IntentID]; exists {
		return false, nil
	}
	if _, ok := s.reservations[p.ReservationID]; !ok {
		return false, fmt.Errorf("create payment: reservation %s does not exist", p.ReservationID)
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.payments[p.IntentID] = *p
	s.paymentOrder = append(s.paymentOrder, p.IntentID)

	intent := p.IntentID
	s.journal(ctx, func() {
		delete(s.payments, intent)
		for i, id := range s.paymentOrder {
			if id == intent {
				s.paymentOrder = append(s.paymentOrder[:i], s.paymentOrder[i+1:]...)
				return
			}
		}
	})
	return true, nil
}

func (r *paymentRepo) FindByIntentID(_ context.Context, intentID string) (*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[intentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepo) FindByIntentIDForUpdate(ctx context.Context, intentID string) (*entity.PaymentRecord, error) {
	if err := r.s.lock(ctx, "payment:"+intentID); err != nil {
		return nil, fmt.Errorf("lock payment %s: %w", intentID, err)
	}
	return r.FindByIntentID(ctx, intentID)
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for intent, p := range s.payments {
		if p.ID != id {
			continue
		}
		if p.Status != from {
			return false, nil
		}
		before := p
		p.Status = to
		p.UpdatedAt = s.now()
		s.payments[intent] = p
		s.journal(ctx, func() { s.payments[intent] = before })
		return true, nil
	}
	return false, nil
}

func (r *paymentRepo) ListByReservation(_ context.Context, reservationID uuid.UUID) ([]*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.PaymentRecord
	for _, intent := range r.s.paymentOrder {
		if p := r.s.payments[intent]; p.ReservationID == reservationID {
			out = append(out, &p)
		}
	}
	return out, nil
}

type dispatchRepo struct{ s *Store }

func (r *dispatchRepo) LockKey(ctx context.Context, key string) error {
	if err := r.s.lock(ctx, "dispatch:"+key); err != nil {
		return fmt.Errorf("lock dispatch key %s: %w", key, err)
	}
	return nil
}

func (r *dispatchRepo) FindSent(_ context.Context, key string) (*entity.DispatchEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.dispatches {
		if e.IdempotencyKey == key && e.Outcome == entity.DispatchOutcomeSent {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (r *dispatchRepo) Record(ctx context.Context, e *entity.DispatchEntry) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Outcome == entity.DispatchOutcomeSent {
		for _, existing := range s.dispatches {
			if existing.IdempotencyKey == e.IdempotencyKey && existing.Outcome == entity.DispatchOutcomeSent {
				return fmt.Errorf("record dispatch %s: %w", e.IdempotencyKey,
					&repository.DuplicateError{Constraint: repository.ConstraintDispatchSent})
			}
		}
	}

	e.CreatedAt = s.now()
	s.dispatches = append(s.dispatches, *e)

	id := e.ID
	s.journal(ctx, func() {
		for i := range s.dispatches {
			if s.dispatches[i].ID == id {
				s.dispatches = append(s.dispatches[:i], s.dispatches[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *dispatchRepo) Claim(ctx context.Context, key string, claimID uuid.UUID, ttl time.Duration) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	prev, held := s.claims[key]
	if held && now.Before(prev.expiresAt) {
		return false, nil
	}
	s.claims[key] = dispatchClaim{id: claimID, expiresAt: now.Add(ttl)}
	s.journal(ctx, func() {
		if held {
			s.claims[key] = prev
		} else {
			delete(s.claims, key)
		}
	})
	return true, nil
}

func (r *dispatchRepo) ReleaseClaim(ctx context.Context, key string, claimID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, held := s.claims[key]
	if !held || prev.id != claimID {
		return nil
	}
	delete(s.claims, key)
	s.journal(ctx, func() { s.claims[key] = prev })
	return nil
}

func (r *dispatchRepo) ListByReservation(_ context.Context, reservationID uuid.UUID) ([]*entity.DispatchEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.DispatchEntry
	for _, e := range r.s.dispatches {
		if e.ReservationID != nil && *e.ReservationID == reservationID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r *dispatchRepo) ListUndelivered(_ context.Context, maxFailures, limit int) ([]*entity.DispatchEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sent := make(map[string]bool)
	failures := make(map[string]int)
	latest := make(map[string]entity.DispatchEntry)
	for _, e := range r.s.dispatches {
		switch {
		case e.Outcome == entity.DispatchOutcomeSent:
			sent[e.IdempotencyKey] = true
		case e.ReservationID != nil:
			failures[e.IdempotencyKey]++
			if prev, ok := latest[e.IdempotencyKey]; !ok || !e.CreatedAt.Before(prev.CreatedAt) {
				latest[e.IdempotencyKey] = e
			}
		}
	}

	var out []*entity.DispatchEntry
	for key, e := range latest {
		if sent[key] || failures[key] >= maxFailures {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdempotencyKey < out[j].IdempotencyKey })
	return page(out, 0, limit), nil
}
