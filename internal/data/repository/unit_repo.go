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

// UnitRepository is the read-only catalog view plus the per-unit booking lock.
type UnitRepository interface {
	List(ctx context.Context, filter entity.UnitFilter) ([]*entity.Unit, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Unit, error)

	// LockForBooking takes the unit's serialization point for the rest of the
	// surrounding transaction. It fails with ErrLockTimeout after a bounded wait.
	LockForBooking(ctx context.Context, id uuid.UUID) (*entity.Unit, error)

	// SearchAvailable returns one page of conflict-free units and the total
	// match count, both read from the same snapshot.
	SearchAvailable(ctx context.Context, q entity.AvailabilityQuery) ([]*entity.Unit, int64, error)
}

type unitRepository struct {
	db          database.PgxIface
	lockTimeout time.Duration
	log         *zap.Logger
}

func NewUnitRepository(db database.PgxIface, lockTimeout time.Duration, log *zap.Logger) UnitRepository {
	return &unitRepository{
		db:          db,
		lockTimeout: lockTimeout,
		log:         log.With(zap.String("repository", "unit")),
	}
}

const unitColumns = `u.id, u.room_number, u.unit_type, u.capacity, u.nightly_rate, u.status`

func scanUnit(row pgx.Row) (*entity.Unit, error) {
	var unit entity.Unit
	if err := row.Scan(
		&unit.ID,
		&unit.RoomNumber,
		&unit.Type,
		&unit.Capacity,
		&unit.NightlyRate,
		&unit.Status,
	); err != nil {
		return nil, err
	}
	return &unit, nil
}

func collectUnits(rows pgx.Rows) ([]*entity.Unit, error) {
	defer rows.Close()

	var units []*entity.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit row: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unit rows: %w", err)
	}
	return units, nil
}

func (r *unitRepository) List(ctx context.Context, filter entity.UnitFilter) ([]*entity.Unit, error) {
	where, args := unitFilterClause(filter.MinCapacity, filter.Type)
	query := `SELECT ` + unitColumns + ` FROM units u ` + where + ` ORDER BY u.room_number ASC`

	rows, err := database.QuerierFrom(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list units", zap.Error(err))
		return nil, fmt.Errorf("list units: %w", err)
	}
	return collectUnits(rows)
}

func (r *unitRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units u WHERE u.id = $1`

	unit, err := scanUnit(database.QuerierFrom(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find unit by ID", zap.Error(err), zap.String("unit_id", id.String()))
		return nil, fmt.Errorf("find unit by ID %s: %w", id, err)
	}
	return unit, nil
}

func (r *unitRepository) LockForBooking(ctx context.Context, id uuid.UUID) (*entity.Unit, error) {
	if !database.InTx(ctx) {
		return nil, ErrNotInTx
	}
	q := database.QuerierFrom(ctx, r.db)

	if _, err := q.Exec(ctx, lockTimeoutSQL(r.lockTimeout)); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	query := `SELECT ` + unitColumns + ` FROM units u WHERE u.id = $1 FOR UPDATE`
	unit, err := scanUnit(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err = translatePgError(err)
		if errors.Is(err, ErrLockTimeout) {
			r.log.Warn("Unit lock wait timed out", zap.String("unit_id", id.String()), zap.Duration("timeout", r.lockTimeout))
			return nil, fmt.Errorf("lock unit %s: %w", id, err)
		}
		r.log.Error("Failed to lock unit", zap.Error(err), zap.String("unit_id", id.String()))
		return nil, fmt.Errorf("lock unit %s: %w", id, err)
	}
	return unit, nil
}

// Half-open overlap: existing.check_in < requested.check_out AND existing.check_out > requested.check_in
const availableUnitPredicate = `
	AND NOT EXISTS (
		SELECT 1 FROM reservations b
		WHERE b.unit_id = u.id
		  AND b.status IN ('pending','confirmed','checked_in')
		  AND b.check_in_date < $%d::date
		  AND b.check_out_date > $%d::date
	)`

func (r *unitRepository) SearchAvailable(ctx context.Context, q entity.AvailabilityQuery) ([]*entity.Unit, int64, error) {
	where, args := unitFilterClause(q.Guests, q.Type)
	next := len(args) + 1
	where += fmt.Sprintf(availableUnitPredicate, next, next+1)
	args = append(args, q.Stay.CheckOut, q.Stay.CheckIn)

	var (
		units []*entity.Unit
		total int64
	)
	err := database.WithinSnapshot(ctx, r.db, func(ctx context.Context) error {
		conn := database.QuerierFrom(ctx, r.db)

		if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM units u `+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("count available units: %w", err)
		}
		if total == 0 {
			return nil
		}

		pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
		query := fmt.Sprintf(`SELECT %s FROM units u %s ORDER BY u.nightly_rate ASC, u.room_number ASC, u.id ASC LIMIT $%d OFFSET $%d`,
			unitColumns, where, len(args)+1, len(args)+2)

		rows, err := conn.Query(ctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("search available units: %w", err)
		}
		units, err = collectUnits(rows)
		return err
	})
	if err != nil {
		r.log.Error("Failed to search available units",
			zap.Error(err),
			zap.Time("check_in", q.Stay.CheckIn),
			zap.Time("check_out", q.Stay.CheckOut),
			zap.Int("guests", q.Guests),
		)
		return nil, 0, err
	}

	return units, total, nil
}

func unitFilterClause(minCapacity int, unitType string) (string, []any) {
	filters := []string{"u.capacity >= $1"}
	args := []any{minCapacity}
	if t := strings.TrimSpace(unitType); t != "" {
		args = append(args, t)
		filters = append(filters, fmt.Sprintf("LOWER(u.unit_type) = LOWER($%d)", len(args)))
	}
	return "WHERE " + strings.Join(filters, " AND "), args
}
