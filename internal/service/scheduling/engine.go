package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"slotbot/internal/domain"
	"slotbot/internal/notify"
	"slotbot/internal/store"
)

// Dispatcher hands notifications to the external chat collaborator.
// Delivery is fire and forget; a failed send never rolls anything back.
type Dispatcher interface {
	Dispatch(msg notify.Message)
}

type Options struct {
	// MaxActiveBookings caps how many future bookings one user may hold.
	MaxActiveBookings int
	// CancelCutoff is the minimum lead time before a booking's start at
	// which the owner may still cancel it.
	CancelCutoff time.Duration
	// BookingHorizonDays is how many days ahead users can browse.
	BookingHorizonDays int
	// ReminderLead/ReminderBefore/ReminderAfter shape the reminder sweep
	// window; they must be tuned together with the sweep cadence.
	ReminderLead   time.Duration
	ReminderBefore time.Duration
	ReminderAfter  time.Duration
	// Location is the wall-clock zone user-facing messages render in.
	Location *time.Location
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxActiveBookings <= 0 {
		o.MaxActiveBookings = 3
	}
	if o.CancelCutoff <= 0 {
		o.CancelCutoff = time.Hour
	}
	if o.BookingHorizonDays <= 0 {
		o.BookingHorizonDays = 7
	}
	if o.ReminderLead <= 0 {
		o.ReminderLead = 2*time.Hour + 30*time.Minute
	}
	if o.ReminderBefore <= 0 {
		o.ReminderBefore = 2 * time.Minute
	}
	if o.ReminderAfter <= 0 {
		o.ReminderAfter = 3 * time.Minute
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Engine binds the schedule store, booking ledger and directory under the
// booking policies: registration gate, quota, cancellation window and
// administrative reconciliation.
type Engine struct {
	schedule   store.ScheduleStore
	ledger     store.BookingLedger
	directory  store.Directory
	dispatcher Dispatcher
	log        *slog.Logger
	opts       Options
}

func NewEngine(schedule store.ScheduleStore, ledger store.BookingLedger, directory store.Directory, dispatcher Dispatcher, log *slog.Logger, opts Options) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		schedule:   schedule,
		ledger:     ledger,
		directory:  directory,
		dispatcher: dispatcher,
		log:        log.With(slog.String("component", "scheduling.engine")),
		opts:       opts.withDefaults(),
	}
}

func (e *Engine) now() time.Time {
	return e.opts.Clock()
}

// Register upserts the user's display name, suffixed with their chat
// handle when present. The name needs both a given and a family name.
func (e *Engine) Register(ctx context.Context, userID int64, name, handle string) Outcome {
	if !domain.ValidDisplayName(name) {
		return OutcomeInvalidName
	}

	display := domain.DisplayNameWithHandle(name, handle)
	if err := e.directory.SetDisplayName(ctx, userID, display); err != nil {
		e.log.Error("directory upsert failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return OutcomeStorageError
	}
	return OutcomeOK
}

// ListBookableDays returns the distinct days within the booking horizon
// holding at least one free upcoming slot, ascending. Days are grouped in
// the configured location so the returned midnights match what ListFreeSlots
// sees when a caller feeds one back.
func (e *Engine) ListBookableDays(ctx context.Context) ([]time.Time, Outcome) {
	now := e.now()
	free, err := e.schedule.ListFreeUpcoming(ctx, now)
	if err != nil {
		e.log.Error("free slot listing failed", slog.Any("err", err))
		return nil, OutcomeStorageError
	}

	horizon := make(map[time.Time]struct{}, e.opts.BookingHorizonDays)
	for _, d := range domain.BookableDays(now.In(e.opts.Location), e.opts.BookingHorizonDays) {
		horizon[d] = struct{}{}
	}

	var days []time.Time
	seen := make(map[time.Time]struct{})
	for _, s := range free {
		day := domain.Day(s.StartTime.In(e.opts.Location))
		if _, ok := horizon[day]; !ok {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days, OutcomeOK
}

// ListFreeSlots returns the free upcoming slots within one calendar day.
func (e *Engine) ListFreeSlots(ctx context.Context, day time.Time) ([]domain.FreeSlot, Outcome) {
	free, err := e.schedule.ListFreeUpcoming(ctx, e.now())
	if err != nil {
		e.log.Error("free slot listing failed", slog.Any("err", err))
		return nil, OutcomeStorageError
	}

	dayStart, dayEnd := domain.DayBounds(day)
	out := make([]domain.FreeSlot, 0, len(free))
	for _, s := range free {
		if !s.StartTime.Before(dayStart) && s.StartTime.Before(dayEnd) {
			out = append(out, s)
		}
	}
	return out, OutcomeOK
}

type BookingResult struct {
	Outcome   Outcome
	StartTime time.Time
}

// AttemptBooking runs the full gate sequence: registration, quota, then
// the ledger's serialized booking transaction.
func (e *Engine) AttemptBooking(ctx context.Context, userID int64, slotID uuid.UUID) BookingResult {
	name, err := e.directory.DisplayName(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return BookingResult{Outcome: OutcomeNotRegistered}
	}
	if err != nil {
		e.log.Error("directory lookup failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return BookingResult{Outcome: OutcomeStorageError}
	}

	now := e.now()
	active, err := e.ledger.CountActiveForUser(ctx, userID, now)
	if err != nil {
		e.log.Error("active booking count failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return BookingResult{Outcome: OutcomeStorageError}
	}
	if active >= e.opts.MaxActiveBookings {
		return BookingResult{Outcome: OutcomeQuotaExceeded}
	}

	start, err := e.schedule.SlotStart(ctx, slotID)
	if errors.Is(err, store.ErrNotFound) {
		return BookingResult{Outcome: OutcomeNotFound}
	}
	if err != nil {
		e.log.Error("slot lookup failed", slog.String("slot_id", slotID.String()), slog.Any("err", err))
		return BookingResult{Outcome: OutcomeStorageError}
	}

	outcome, err := e.ledger.TryBook(ctx, userID, slotID, name)
	if errors.Is(err, store.ErrNotFound) {
		// The slot vanished between the lookup and the transaction.
		return BookingResult{Outcome: OutcomeNotFound}
	}
	if err != nil {
		e.log.Error("booking transaction failed",
			slog.Int64("user_id", userID),
			slog.String("slot_id", slotID.String()),
			slog.Any("err", err),
		)
		return BookingResult{Outcome: OutcomeStorageError}
	}

	switch outcome {
	case store.BookSuccess:
		return BookingResult{Outcome: OutcomeOK, StartTime: start}
	case store.BookAlreadyYours:
		return BookingResult{Outcome: OutcomeAlreadyBooked, StartTime: start}
	default:
		return BookingResult{Outcome: OutcomeSlotTaken, StartTime: start}
	}
}

// ListMyBookings returns the user's future bookings, ascending by start.
func (e *Engine) ListMyBookings(ctx context.Context, userID int64) ([]domain.UserBookingView, Outcome) {
	if _, err := e.directory.DisplayName(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, OutcomeNotRegistered
		}
		e.log.Error("directory lookup failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return nil, OutcomeStorageError
	}

	rows, err := e.ledger.ListForUser(ctx, userID, e.now())
	if err != nil {
		e.log.Error("booking listing failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return nil, OutcomeStorageError
	}
	return rows, OutcomeOK
}

type CancelResult struct {
	Outcome   Outcome
	StartTime time.Time
}

// AttemptCancel enforces the cancellation window: the slot must start more
// than CancelCutoff from now, strictly.
func (e *Engine) AttemptCancel(ctx context.Context, bookingID uuid.UUID) CancelResult {
	start, err := e.ledger.StartOf(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return CancelResult{Outcome: OutcomeNotFound}
	}
	if err != nil {
		e.log.Error("booking lookup failed", slog.String("booking_id", bookingID.String()), slog.Any("err", err))
		return CancelResult{Outcome: OutcomeStorageError}
	}

	if start.Sub(e.now()) <= e.opts.CancelCutoff {
		return CancelResult{Outcome: OutcomeTooLateToCancel, StartTime: start}
	}

	if err := e.ledger.Cancel(ctx, bookingID); err != nil {
		e.log.Error("cancel transaction failed", slog.String("booking_id", bookingID.String()), slog.Any("err", err))
		return CancelResult{Outcome: OutcomeStorageError}
	}
	return CancelResult{Outcome: OutcomeOK, StartTime: start}
}

type DisplacedBooking struct {
	UserID    int64
	StartTime time.Time
}

type ReconcileResult struct {
	Added     int
	Removed   int
	Notified  int
	Displaced []DisplacedBooking
}

// AdminReconcileDay applies the symmetric difference between the desired
// time-of-day set and the slots existing on that day. Each add or remove
// is atomic on its own; the day as a whole is not, so one failing step
// does not undo the ones before it. Displaced users are notified through
// the dispatcher, fire and forget.
func (e *Engine) AdminReconcileDay(ctx context.Context, day time.Time, desired []domain.TimeOfDay) (ReconcileResult, Outcome) {
	existing, err := e.schedule.ListSlotsOnDay(ctx, day)
	if err != nil {
		e.log.Error("day listing failed", slog.Time("day", day), slog.Any("err", err))
		return ReconcileResult{}, OutcomeStorageError
	}

	existingByTime := make(map[domain.TimeOfDay]time.Time, len(existing))
	for _, start := range existing {
		local := start.In(day.Location())
		existingByTime[domain.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}] = start
	}
	desiredSet := make(map[domain.TimeOfDay]struct{}, len(desired))
	for _, tod := range desired {
		desiredSet[tod] = struct{}{}
	}

	var res ReconcileResult
	for _, tod := range desired {
		if _, ok := existingByTime[tod]; ok {
			continue
		}
		start, end := domain.SlotSpan(day, tod)
		created, err := e.schedule.DefineSlot(ctx, start, end)
		if err != nil {
			e.log.Error("slot create failed", slog.Time("start", start), slog.Any("err", err))
			return res, OutcomeStorageError
		}
		if created {
			res.Added++
		}
	}

	for tod, start := range existingByTime {
		if _, ok := desiredSet[tod]; ok {
			continue
		}
		displaced, err := e.schedule.RemoveSlotByStart(ctx, start)
		if err != nil {
			e.log.Error("slot remove failed", slog.Time("start", start), slog.Any("err", err))
			return res, OutcomeStorageError
		}
		res.Removed++
		if displaced != nil {
			res.Displaced = append(res.Displaced, DisplacedBooking{UserID: *displaced, StartTime: start})
			res.Notified++
			e.dispatch(notify.Message{
				UserID: *displaced,
				Text:   removalText(start.In(day.Location())),
			})
		}
	}

	return res, OutcomeOK
}

// AdminListAllBookings is the full audit listing.
func (e *Engine) AdminListAllBookings(ctx context.Context) ([]domain.ReportEntry, Outcome) {
	rows, err := e.ledger.AllBookings(ctx)
	if err != nil {
		e.log.Error("audit listing failed", slog.Any("err", err))
		return nil, OutcomeStorageError
	}
	return rows, OutcomeOK
}

// AdminForceClearAll wipes every slot and booking.
func (e *Engine) AdminForceClearAll(ctx context.Context) Outcome {
	if err := e.schedule.ClearAll(ctx); err != nil {
		e.log.Error("clear all failed", slog.Any("err", err))
		return OutcomeStorageError
	}
	return OutcomeOK
}

func (e *Engine) dispatch(msg notify.Message) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.Dispatch(msg)
}
