// Package memstore is an in-process storage engine behind the repository
// interfaces. Locks taken inside WithinTx are held until the transaction
// returns and writes are undone when it fails.
package memstore

import (
	"context"
	"sync"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.Mutex
	units        map[uuid.UUID]entity.Unit
	reservations map[uuid.UUID]entity.Reservation
	payments     map[string]entity.PaymentRecord
	paymentOrder []string
	dispatches   []entity.DispatchEntry
	claims       map[string]dispatchClaim

	locks       *keyLocks
	lockTimeout time.Duration
	now         func() time.Time
}

// New returns an empty store whose lock waits give up after lockTimeout.
func New(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Store{
		units:        make(map[uuid.UUID]entity.Unit),
		reservations: make(map[uuid.UUID]entity.Reservation),
		payments:     make(map[string]entity.PaymentRecord),
		claims:       make(map[string]dispatchClaim),
		locks:        &keyLocks{chans: make(map[string]chan struct{})},
		lockTimeout:  lockTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Repository exposes the store through the same bundle the Postgres engine uses.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		Tx:          s,
		Unit:        &unitRepo{s: s},
		Reservation: &reservationRepo{s: s},
		Payment:     &paymentRepo{s: s},
		Dispatch:    &dispatchRepo{s: s},
	}
}

// AddUnit seeds the catalog.
func (s *Store) AddUnit(u entity.Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.units[u.ID] = u
}

type dispatchClaim struct {
	id        uuid.UUID
	expiresAt time.Time
}

type txKey struct{}

type memTx struct {
	held []string
	undo []func()
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

// WithinTx joins an outer transaction when ctx already carries one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &memTx{}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx)
			s.release(tx)
			panic(p)
		}
		if err != nil {
			s.rollback(tx)
		}
		s.release(tx)
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

func (s *Store) rollback(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (s *Store) release(tx *memTx) {
	for i := len(tx.held) - 1; i >= 0; i-- {
		s.locks.release(tx.held[i])
	}
	tx.held = nil
}

// lock takes key for the transaction in ctx. Keys already held are reentrant.
func (s *Store) lock(ctx context.Context, key string) error {
	tx := txFrom(ctx)
	if tx == nil {
		return repository.ErrNotInTx
	}
	for _, k := range tx.held {
		if k == key {
			return nil
		}
	}
	if err := s.locks.acquire(ctx, key, s.lockTimeout); err != nil {
		return err
	}
	tx.held = append(tx.held, key)
	return nil
}

// journal registers an inverse write. Callers hold s.mu.
func (s *Store) journal(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

type keyLocks struct {
	mu    sync.Mutex
	chans map[string]chan struct{}
}

func (k *keyLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.chans[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.chans[key] = ch
	}
	return ch
}

func (k *keyLocks) acquire(ctx context.Context, key string, timeout time.Duration) error {
	ch := k.slot(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return repository.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *keyLocks) release(key string) {
	<-k.slot(key)
}
