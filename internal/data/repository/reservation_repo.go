package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ReservationRepository interface {
	// Create inserts r. A clash with an active reservation surfaces as
	// ErrUnitUnavailable and a reused code as a DuplicateError.
	Create(ctx context.Context, r *entity.Reservation) error
	HasOverlap(ctx context.Context, unitID uuid.UUID, stay entity.DateRange) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	// FindByIDForUpdate locks the reservation row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error)
	FindByConfirmationCode(ctx context.Context, code string) (*entity.Reservation, error)
	List(ctx context.Context, filter entity.ReservationFilter) ([]*entity.Reservation, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, scope entity.GuestHistoryScope, today time.Time) ([]*entity.Reservation, error)

	// UpdateStatus moves id from one status to another and reports false when
	// the row was no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ReservationStatus, reason *string) (bool, error)
	// MarkPaid sets paid once and reports whether this call flipped it.
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

type reservationRepository struct {
	db          database.PgxIface
	lockTimeout time.Duration
	log         *zap.Logger
}

func NewReservationRepository(db database.PgxIface, lockTimeout time.Duration, log *zap.Logger) ReservationRepository {
	return &reservationRepository{
		db:          db,
		lockTimeout: lockTimeout,
		log:         log.With(zap.String("repository", "reservation")),
	}
}

const reservationColumns = `
	r.id, r.confirmation_code, r.unit_id, r.user_id,
	r.first_name, r.last_name, r.email, r.phone_number, r.special_requests,
	r.check_in_date, r.check_out_date, r.guest_count,
	r.subtotal, r.tax, r.total_price, r.paid, r.status, r.cancellation_reason,
	r.created_at, r.updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	if err := row.Scan(
		&res.ID,
		&res.ConfirmationCode,
		&res.UnitID,
		&res.UserID,
		&res.Guest.FirstName,
		&res.Guest.LastName,
		&res.Guest.Email,
		&res.Guest.Phone,
		&res.Guest.SpecialRequests,
		&res.CheckIn,
		&res.CheckOut,
		&res.GuestCount,
		&res.Subtotal,
		&res.Tax,
		&res.Total,
		&res.Paid,
		&res.Status,
		&res.CancellationReason,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]*entity.Reservation, error) {
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	return reservations, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, confirmation_code, unit_id, user_id,
			first_name, last_name, email, phone_number, special_requests,
			check_in_date, check_out_date, guest_count,
			subtotal, tax, total_price, paid, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	err := database.QuerierFrom(ctx, r.db).QueryRow(ctx, query,
		res.ID,
		res.ConfirmationCode,
		res.UnitID,
		res.UserID,
		res.Guest.FirstName,
		res.Guest.LastName,
		res.Guest.Email,
		res.Guest.Phone,
		res.Guest.SpecialRequests,
		res.CheckIn,
		res.CheckOut,
		res.GuestCount,
		res.Subtotal,
		res.Tax,
		res.Total,
		res.Paid,
		res.Status,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		err = translatePgError(err)
		if errors.Is(err, ErrUnitUnavailable) || errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("create reservation: %w", err)
		}
		r.log.Error("Failed to create reservation", zap.Error(err), zap.String("unit_id", res.UnitID.String()))
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *reservationRepository) HasOverlap(ctx context.Context, unitID uuid.UUID, stay entity.DateRange) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE unit_id = $1
			  AND status IN ('pending','confirmed','checked_in')
			  AND check_in_date < $2::date
			  AND check_out_date > $3::date
		)`

	var exists bool
	if err := database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, unitID, stay.CheckOut, stay.CheckIn).Scan(&exists); err != nil {
		r.log.Error("Failed to check overlap", zap.Error(err), zap.String("unit_id", unitID.String()))
		return false, fmt.Errorf("check overlap for unit %s: %w", unitID, err)
	}
	return exists, nil
}

func (r *reservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`

	res, err := scanReservation(database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by ID", zap.Error(err), zap.String("reservation_id", id.String()))
		return nil, fmt.Errorf("find reservation by ID %s: %w", id, err)
	}
	return res, nil
}

func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	if !database.InTx(ctx) {
		return nil, ErrNotInTx
	}
	q := database.QuerierFrom(ctx, r.db)

	if _, err := q.Exec(ctx, lockTimeoutSQL(r.lockTimeout)); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1 FOR UPDATE`
	res, err := scanReservation(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err = translatePgError(err)
		if errors.Is(err, ErrLockTimeout) {
			r.log.Warn("Reservation lock wait timed out", zap.String("reservation_id", id.String()), zap.Duration("timeout", r.lockTimeout))
		} else {
			r.log.Error("Failed to lock reservation", zap.Error(err), zap.String("reservation_id", id.String()))
		}
		return nil, fmt.Errorf("lock reservation %s: %w", id, err)
	}
	return res, nil
}

func (r *reservationRepository) FindByConfirmationCode(ctx context.Context, code string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.confirmation_code = $1`

	res, err := scanReservation(database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, strings.ToUpper(code)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find reservation by code", zap.Error(err))
		return nil, fmt.Errorf("find reservation by code: %w", err)
	}
	return res, nil
}

func (r *reservationRepository) List(ctx context.Context, filter entity.ReservationFilter) ([]*entity.Reservation, int64, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(r.confirmation_code ILIKE $%d OR r.first_name ILIKE $%d OR r.last_name ILIKE $%d OR r.email ILIKE $%d)", n, n, n, n))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var (
		reservations []*entity.Reservation
		total        int64
	)
	err := database.WithinSnapshot(ctx, r.db, func(ctx context.Context) error {
		q := database.QuerierFrom(ctx, r.db)

		if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM reservations r `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count reservations: %w", err)
		}

		pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)
		query := fmt.Sprintf(`SELECT %s FROM reservations r %s ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d`,
			reservationColumns, where, len(args)+1, len(args)+2)

		rows, err := q.Query(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("list reservations: %w", err)
		}
		reservations, err = collectReservations(rows)
		return err
	})
	if err != nil {
		r.log.Error("Failed to list reservations", zap.Error(err))
		return nil, 0, err
	}
	return reservations, total, nil
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID uuid.UUID, scope entity.GuestHistoryScope, today time.Time) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.user_id = $1`
	args := []any{userID}

	switch scope {
	case entity.GuestHistoryUpcoming:
		query += ` AND r.check_out_date >= $2::date AND r.status IN ('pending','confirmed','checked_in') ORDER BY r.check_in_date ASC`
		args = append(args, today)
	case entity.GuestHistoryPast:
		query += ` AND r.check_out_date < $2::date ORDER BY r.check_in_date DESC`
		args = append(args, today)
	default:
		query += ` ORDER BY r.created_at DESC`
	}

	rows, err := database.QuerierFrom(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list reservations by user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("list reservations for user %s: %w", userID, err)
	}
	return collectReservations(rows)
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ReservationStatus, reason *string) (bool, error) {
	query := `
		UPDATE reservations
		SET status = $3,
		    cancellation_reason = COALESCE($4, cancellation_reason),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2`

	tag, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query, id, from, to, reason)
	if err != nil {
		r.log.Error("Failed to update reservation status",
			zap.Error(err),
			zap.String("reservation_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update reservation status %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reservationRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE reservations SET paid = TRUE, updated_at = NOW() WHERE id = $1 AND paid = FALSE`

	tag, err := database.QuerierFrom(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark reservation paid", zap.Error(err), zap.String("reservation_id", id.String()))
		return false, fmt.Errorf("mark reservation %s paid: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
