package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Booking links one user to one slot. DisplayName is a snapshot taken at
// booking time so reports stay stable if the user later re-registers.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	UserID      int64     `bun:"user_id,notnull"`
	DisplayName string    `bun:"display_name,notnull"`
	SlotID      uuid.UUID `bun:"slot_id,notnull,unique,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// UserBookingView is one row of a user's upcoming bookings.
type UserBookingView struct {
	BookingID uuid.UUID
	StartTime time.Time
}

// ReportEntry is one row of an admin report: who holds which start time.
type ReportEntry struct {
	StartTime   time.Time
	DisplayName string
}

// ReminderEntry carries enough to address a reminder to its user.
type ReminderEntry struct {
	UserID      int64
	StartTime   time.Time
	DisplayName string
}
