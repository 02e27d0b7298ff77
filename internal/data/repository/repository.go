package repository

import (
	"context"
	"time"

	"hotel-booking/pkg/database"

	"go.uber.org/zap"
)

// Transactor runs fn inside a single storage transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	Tx          Transactor
	Unit        UnitRepository
	Reservation ReservationRepository
	Payment     PaymentRepository
	Dispatch    DispatchRepository
}

// NewRepository wires the Postgres implementations. lockTimeout bounds every
// row or advisory lock wait.
func NewRepository(db database.PgxIface, lockTimeout time.Duration, log *zap.Logger) *Repository {
	return &Repository{
		Tx:          &pgTransactor{db: db},
		Unit:        NewUnitRepository(db, lockTimeout, log),
		Reservation: NewReservationRepository(db, lockTimeout, log),
		Payment:     NewPaymentRepository(db, log),
		Dispatch:    NewDispatchRepository(db, lockTimeout, log),
	}
}

type pgTransactor struct {
	db database.PgxIface
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithinTx(ctx, t.db, fn)
}
