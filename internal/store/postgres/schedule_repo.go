package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"slotbot/internal/domain"
	"slotbot/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// lockSlot takes a transaction-scoped advisory lock keyed by the slot id.
// Every mutation that touches a slot's booking state goes through it, so
// check-then-write sequences on one slot serialize across connections.
func lockSlot(ctx context.Context, tx bun.Tx, slotID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", slotID.String()).Exec(ctx)
	return err
}

func (r *ScheduleRepo) DefineSlot(ctx context.Context, start, end time.Time) (bool, error) {
	s := domain.Slot{
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
	}

	res, err := r.db.NewInsert().
		Model(&s).
		On("CONFLICT (start_time) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ScheduleRepo) RemoveSlotByStart(ctx context.Context, start time.Time) (*int64, error) {
	var displaced *int64

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var slot domain.Slot
		err := tx.NewSelect().
			Model(&slot).
			Where("start_time = ?", start.UTC()).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := lockSlot(ctx, tx, slot.ID); err != nil {
			return err
		}

		var booking domain.Booking
		err = tx.NewSelect().
			Model(&booking).
			Where("slot_id = ?", slot.ID).
			Limit(1).
			Scan(ctx)
		switch {
		case err == nil:
			displaced = &booking.UserID
			if _, err := tx.NewDelete().
				Model((*domain.Booking)(nil)).
				Where("id = ?", booking.ID).
				Exec(ctx); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		_, err = tx.NewDelete().
			Model((*domain.Slot)(nil)).
			Where("id = ?", slot.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return displaced, nil
}

func (r *ScheduleRepo) ListSlotsOnDay(ctx context.Context, day time.Time) ([]time.Time, error) {
	dayStart, dayEnd := domain.DayBounds(day)

	var starts []time.Time
	err := r.db.NewSelect().
		Model((*domain.Slot)(nil)).
		Column("start_time").
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayEnd).
		OrderExpr("start_time ASC").
		Scan(ctx, &starts)
	if err != nil {
		return nil, err
	}
	return starts, nil
}

func (r *ScheduleRepo) ListFreeUpcoming(ctx context.Context, now time.Time) ([]domain.FreeSlot, error) {
	var rows []domain.FreeSlot
	err := r.db.NewSelect().
		Model((*domain.Slot)(nil)).
		ColumnExpr("id AS slot_id").
		ColumnExpr("start_time").
		Where("booked = FALSE").
		Where("start_time > ?", now.UTC()).
		OrderExpr("start_time ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) SlotStart(ctx context.Context, slotID uuid.UUID) (time.Time, error) {
	var start time.Time
	err := r.db.NewSelect().
		Model((*domain.Slot)(nil)).
		Column("start_time").
		Where("id = ?", slotID).
		Scan(ctx, &start)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return start, nil
}

func (r *ScheduleRepo) ClearDay(ctx context.Context, day time.Time) error {
	dayStart, dayEnd := domain.DayBounds(day)

	// Bookings follow via the slot_id cascade.
	_, err := r.db.NewDelete().
		Model((*domain.Slot)(nil)).
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayEnd).
		Exec(ctx)
	return err
}

func (r *ScheduleRepo) ClearAll(ctx context.Context) error {
	_, err := r.db.NewDelete().
		Model((*domain.Slot)(nil)).
		Where("TRUE").
		Exec(ctx)
	return err
}

var _ store.ScheduleStore = (*ScheduleRepo)(nil)
