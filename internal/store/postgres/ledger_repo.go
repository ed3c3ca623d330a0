package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"slotbot/internal/domain"
	"slotbot/internal/store"
)

type LedgerRepo struct {
	db *bun.DB
}

func NewLedgerRepo(db *bun.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) TryBook(ctx context.Context, userID int64, slotID uuid.UUID, displayName string) (store.BookOutcome, error) {
	outcome := store.BookTakenByOther

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockSlot(ctx, tx, slotID); err != nil {
			return err
		}

		var existing domain.Booking
		err := tx.NewSelect().
			Model(&existing).
			Where("slot_id = ?", slotID).
			Limit(1).
			Scan(ctx)
		switch {
		case err == nil:
			if existing.UserID == userID {
				outcome = store.BookAlreadyYours
			} else {
				outcome = store.BookTakenByOther
			}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		res, err := tx.NewUpdate().
			Model((*domain.Slot)(nil)).
			Set("booked = TRUE").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", slotID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}

		b := domain.Booking{
			UserID:      userID,
			DisplayName: displayName,
			SlotID:      slotID,
		}
		if _, err := tx.NewInsert().Model(&b).Exec(ctx); err != nil {
			return err
		}

		outcome = store.BookSuccess
		return nil
	})
	if err != nil {
		// A connection bypassing the advisory lock can still lose the race
		// on the slot_id unique index; that loss is an expected outcome.
		if lostSlotRace(err) {
			return store.BookTakenByOther, nil
		}
		return 0, conflictError(err)
	}
	return outcome, nil
}

const (
	pgerrUniqueViolation = "23505"

	// slotTakenConstraint backs the one-booking-per-slot invariant.
	slotTakenConstraint = "bookings_slot_id_key"
)

func lostSlotRace(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrUniqueViolation &&
		pgErr.ConstraintName == slotTakenConstraint
}

// conflictError maps any other unique violation to the ErrConflict
// sentinel so callers can tell it from an infrastructure fault.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
		return fmt.Errorf("%w: constraint %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (r *LedgerRepo) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var booking domain.Booking
		err := tx.NewSelect().
			Model(&booking).
			Where("id = ?", bookingID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := lockSlot(ctx, tx, booking.SlotID); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*domain.Booking)(nil)).
			Where("id = ?", bookingID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Another canceller or a slot removal got here first.
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*domain.Slot)(nil)).
			Set("booked = FALSE").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", booking.SlotID).
			Exec(ctx)
		return err
	})
}

func (r *LedgerRepo) ListForUser(ctx context.Context, userID int64, now time.Time) ([]domain.UserBookingView, error) {
	var rows []domain.UserBookingView
	err := r.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("b.id AS booking_id").
		ColumnExpr("s.start_time AS start_time").
		Join("JOIN slots AS s ON s.id = b.slot_id").
		Where("b.user_id = ?", userID).
		Where("s.start_time > ?", now.UTC()).
		OrderExpr("s.start_time ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LedgerRepo) CountActiveForUser(ctx context.Context, userID int64, now time.Time) (int, error) {
	return r.db.NewSelect().
		TableExpr("bookings AS b").
		Join("JOIN slots AS s ON s.id = b.slot_id").
		Where("b.user_id = ?", userID).
		Where("s.start_time > ?", now.UTC()).
		Count(ctx)
}

func (r *LedgerRepo) StartOf(ctx context.Context, bookingID uuid.UUID) (time.Time, error) {
	var start time.Time
	err := r.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("s.start_time").
		Join("JOIN slots AS s ON s.id = b.slot_id").
		Where("b.id = ?", bookingID).
		Scan(ctx, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return start, nil
}

func (r *LedgerRepo) AllBookings(ctx context.Context) ([]domain.ReportEntry, error) {
	return r.reportEntries(ctx, time.Time{}, time.Time{})
}

func (r *LedgerRepo) ForDay(ctx context.Context, day time.Time) ([]domain.ReportEntry, error) {
	dayStart, dayEnd := domain.DayBounds(day)
	return r.reportEntries(ctx, dayStart, dayEnd)
}

func (r *LedgerRepo) reportEntries(ctx context.Context, from, to time.Time) ([]domain.ReportEntry, error) {
	q := r.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("s.start_time AS start_time").
		ColumnExpr("b.display_name AS display_name").
		Join("JOIN slots AS s ON s.id = b.slot_id").
		OrderExpr("s.start_time ASC")
	if !from.IsZero() {
		q = q.Where("s.start_time >= ?", from).Where("s.start_time < ?", to)
	}

	var rows []domain.ReportEntry
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LedgerRepo) ForRange(ctx context.Context, from, to time.Time) ([]domain.ReminderEntry, error) {
	var rows []domain.ReminderEntry
	err := r.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("b.user_id AS user_id").
		ColumnExpr("s.start_time AS start_time").
		ColumnExpr("b.display_name AS display_name").
		Join("JOIN slots AS s ON s.id = b.slot_id").
		Where("s.start_time >= ?", from.UTC()).
		Where("s.start_time < ?", to.UTC()).
		OrderExpr("s.start_time ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var _ store.BookingLedger = (*LedgerRepo)(nil)
