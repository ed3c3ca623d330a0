package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotbot/internal/domain"
)

// BookOutcome is the result of a booking attempt. Losing the race for a
// slot is expected control flow, not an error.
type BookOutcome int

const (
	BookSuccess BookOutcome = iota
	BookAlreadyYours
	BookTakenByOther
)

func (o BookOutcome) String() string {
	switch o {
	case BookSuccess:
		return "success"
	case BookAlreadyYours:
		return "already_yours"
	case BookTakenByOther:
		return "taken_by_other"
	default:
		return "unknown"
	}
}

// BookingLedger owns user-to-slot reservations. TryBook and Cancel mutate
// the slot's booked flag and the booking row as one atomic unit.
type BookingLedger interface {
	// TryBook serializes concurrent attempts on the same slot id: exactly
	// one caller observes no existing booking and succeeds. A repeat
	// attempt by the current holder returns BookAlreadyYours with no
	// mutation. ErrNotFound when the slot does not exist.
	TryBook(ctx context.Context, userID int64, slotID uuid.UUID, displayName string) (BookOutcome, error)

	// Cancel deletes the booking and frees its slot atomically. A missing
	// booking is a no-op.
	Cancel(ctx context.Context, bookingID uuid.UUID) error

	// ListForUser returns the user's bookings whose slot starts strictly
	// after now, ascending by start.
	ListForUser(ctx context.Context, userID int64, now time.Time) ([]domain.UserBookingView, error)

	// CountActiveForUser counts the rows ListForUser would return.
	CountActiveForUser(ctx context.Context, userID int64, now time.Time) (int, error)

	// StartOf resolves a booking id to its slot's start instant.
	// ErrNotFound when the booking does not exist.
	StartOf(ctx context.Context, bookingID uuid.UUID) (time.Time, error)

	// AllBookings is the full audit listing, ascending by slot start.
	AllBookings(ctx context.Context) ([]domain.ReportEntry, error)

	// ForDay returns the bookings whose slot starts within the calendar
	// day containing day, ascending by start.
	ForDay(ctx context.Context, day time.Time) ([]domain.ReportEntry, error)

	// ForRange returns the bookings whose slot starts within [from, to),
	// with the owning user id, for reminder fan-out.
	ForRange(ctx context.Context, from, to time.Time) ([]domain.ReminderEntry, error)
}
