package repository

import (
	"context"
	"errors"
	"fmt"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	// Create stores p unless a record for the same intent exists. It reports
	// whether a row was written.
	Create(ctx context.Context, p *entity.PaymentRecord) (bool, error)
	FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentRecord, error)
	// FindByIntentIDForUpdate locks the record until the transaction ends.
	FindByIntentIDForUpdate(ctx context.Context, intentID string) (*entity.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*entity.PaymentRecord, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, reservation_id, processor_intent_id, amount, currency, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.PaymentRecord, error) {
	var p entity.PaymentRecord
	if err := row.Scan(
		&p.ID,
		&p.ReservationID,
		&p.IntentID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.PaymentRecord) (bool, error) {
	query := `
		INSERT INTO payments (id, reservation_id, processor_intent_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (processor_intent_id) DO NOTHING`

	tag, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query,
		p.ID, p.ReservationID, p.IntentID, p.Amount, p.Currency, p.Status)
	if err != nil {
		r.log.Error("Failed to create payment", zap.Error(err), zap.String("intent_id", p.IntentID))
		return false, fmt.Errorf("create payment for intent %s: %w", p.IntentID, translatePgError(err))
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentRecord, error) {
	return r.findByIntent(ctx, intentID, false)
}

func (r *paymentRepository) FindByIntentIDForUpdate(ctx context.Context, intentID string) (*entity.PaymentRecord, error) {
	if !database.InTx(ctx) {
		return nil, ErrNotInTx
	}
	return r.findByIntent(ctx, intentID, true)
}

func (r *paymentRepository) findByIntent(ctx context.Context, intentID string, forUpdate bool) (*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE processor_intent_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	p, err := scanPayment(database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, intentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err = translatePgError(err)
		r.log.Error("Failed to find payment by intent", zap.Error(err), zap.String("intent_id", intentID))
		return nil, fmt.Errorf("find payment by intent %s: %w", intentID, err)
	}
	return p, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.PaymentStatus) (bool, error) {
	query := `UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	tag, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update payment status", zap.Error(err), zap.String("payment_id", id.String()))
		return false, fmt.Errorf("update payment status %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]*entity.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 ORDER BY created_at ASC`

	rows, err := database.QuerierFrom(ctx, r.db).Query(ctx, query, reservationID)
	if err != nil {
		r.log.Error("Failed to list payments", zap.Error(err), zap.String("reservation_id", reservationID.String()))
		return nil, fmt.Errorf("list payments for reservation %s: %w", reservationID, err)
	}
	defer rows.Close()

	var payments []*entity.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
