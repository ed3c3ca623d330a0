package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Slot is a fixed one-hour bookable window. Start times are unique across
// the whole calendar; Booked mirrors the existence of a referencing Booking.
type Slot struct {
	bun.BaseModel `bun:"table:slots"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	StartTime time.Time `bun:"start_time,notnull,unique"`
	EndTime   time.Time `bun:"end_time,notnull"`
	Booked    bool      `bun:"booked,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (s *Slot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// FreeSlot is the listing shape handed to front-end adapters when a user
// picks a time.
type FreeSlot struct {
	SlotID    uuid.UUID
	StartTime time.Time
}
