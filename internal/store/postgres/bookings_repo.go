package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"slotline/backend/internal/domain"
	"slotline/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) GetProvider(ctx context.Context, id uuid.UUID) (domain.Provider, error) {
	var p domain.Provider
	err := r.db.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Provider{}, store.ErrNotFound
		}
		return domain.Provider{}, err
	}
	return p, nil
}

func (r *BookingRepo) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	var s domain.Service
	err := r.db.NewSelect().
		Model(&s).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *BookingRepo) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error) {
	return listOverlapping(ctx, r.db, providerID, start, end, excludeID)
}

func (r *BookingRepo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return insertBooking(ctx, r.db, b)
}

func (r *BookingRepo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return updateBooking(ctx, r.db, b)
}

func (r *BookingRepo) CreateWaitlistEntry(ctx context.Context, e domain.WaitlistEntry) (domain.WaitlistEntry, error) {
	_, err := r.db.NewInsert().Model(&e).Exec(ctx)
	if err != nil {
		return domain.WaitlistEntry{}, err
	}
	return e, nil
}

func (r *BookingRepo) InProviderIntervalLock(ctx context.Context, providerID uuid.UUID, start, end time.Time, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderInterval(ctx, tx, providerID, start, end); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

// lockProviderInterval takes a transaction-scoped advisory lock for every
// calendar day the interval touches. Two overlapping intervals always share
// at least one day, so holders of disjoint day sets never contend.
func lockProviderInterval(ctx context.Context, tx bun.Tx, providerID uuid.UUID, start, end time.Time) error {
	for _, key := range intervalLockKeys(providerID, start, end) {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func intervalLockKeys(providerID uuid.UUID, start, end time.Time) []string {
	startUTC := start.UTC()
	// The interval is half-open, so an end at exactly midnight does not
	// touch the following day.
	endUTC := end.UTC().Add(-time.Nanosecond)

	day := time.Date(startUTC.Year(), startUTC.Month(), startUTC.Day(), 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(endUTC.Year(), endUTC.Month(), endUTC.Day(), 0, 0, 0, 0, time.UTC)

	keys := make([]string, 0, 1)
	for !day.After(lastDay) {
		keys = append(keys, providerID.String()+":"+day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
	return keys
}

func (t bookingTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := t.tx.NewSelect().
		Model(&b).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (t bookingTx) ListOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error) {
	return listOverlapping(ctx, t.tx, providerID, start, end, excludeID)
}

func (t bookingTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return insertBooking(ctx, t.tx, b)
}

func (t bookingTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	return updateBooking(ctx, t.tx, b)
}

func listOverlapping(ctx context.Context, db bun.IDB, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status IN (?)", bun.In(domain.ActiveStatuses)).
		Where("start_time < ?", end).
		Where("end_time > ?", start).
		OrderExpr("start_time ASC")
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func insertBooking(ctx context.Context, db bun.IDB, b domain.Booking) (domain.Booking, error) {
	_, err := db.NewInsert().Model(&b).Exec(ctx)
	if err != nil {
		if isOverlapConstraintErr(err) {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func updateBooking(ctx context.Context, db bun.IDB, b domain.Booking) (domain.Booking, error) {
	res, err := db.NewUpdate().
		Model(&b).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isOverlapConstraintErr(err) {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

// The bookings table carries an exclusion constraint over
// (provider_id, tstzrange(start_time, end_time)) for active bookings as a
// backstop behind the advisory lock.
func isOverlapConstraintErr(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" && pgErr.ConstraintName == "bookings_no_overlap"
}
