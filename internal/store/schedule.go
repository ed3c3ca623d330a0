package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotbot/internal/domain"
)

// ScheduleStore owns slot definitions and their booked/free flags. The
// booked flag is mutated only inside ledger transactions.
type ScheduleStore interface {
	// DefineSlot inserts a slot unless one with the same start instant
	// already exists; it reports whether a row was created.
	DefineSlot(ctx context.Context, start, end time.Time) (bool, error)

	// RemoveSlotByStart deletes the slot matching start exactly, deleting
	// any referencing booking first. It returns the displaced user's id
	// when a booking existed, and nil otherwise (including when no slot
	// matched).
	RemoveSlotByStart(ctx context.Context, start time.Time) (*int64, error)

	// ListSlotsOnDay returns the start instants of every slot, booked or
	// free, within the calendar day containing day.
	ListSlotsOnDay(ctx context.Context, day time.Time) ([]time.Time, error)

	// ListFreeUpcoming returns unbooked slots starting strictly after now,
	// ascending by start.
	ListFreeUpcoming(ctx context.Context, now time.Time) ([]domain.FreeSlot, error)

	// SlotStart resolves a slot id to its start instant. ErrNotFound when
	// the slot does not exist.
	SlotStart(ctx context.Context, slotID uuid.UUID) (time.Time, error)

	// ClearDay deletes every slot (and, via cascade, every booking) within
	// the calendar day containing day.
	ClearDay(ctx context.Context, day time.Time) error

	// ClearAll deletes every slot and every booking.
	ClearAll(ctx context.Context) error
}
