package domain

import (
	"fmt"
	"time"
)

// SlotDuration is the fixed length of every bookable window.
const SlotDuration = time.Hour

// TimeOfDay is a wall-clock start time within a calendar day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses the "15:04" form used by the admin slot grid.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// DefaultDaySlots is the palette the admin edits against: hourly starts at
// half past, 11:30 through 21:30.
func DefaultDaySlots() []TimeOfDay {
	out := make([]TimeOfDay, 0, 11)
	for h := 11; h <= 21; h++ {
		out = append(out, TimeOfDay{Hour: h, Minute: 30})
	}
	return out
}

// Day truncates an instant to the midnight opening its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open [midnight, next midnight) window of the
// day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := Day(t)
	return start, start.AddDate(0, 0, 1)
}

// BookableDays enumerates today plus the following horizon-1 days.
func BookableDays(now time.Time, horizon int) []time.Time {
	if horizon < 1 {
		horizon = 1
	}
	out := make([]time.Time, 0, horizon)
	for i := 0; i < horizon; i++ {
		out = append(out, Day(now).AddDate(0, 0, i))
	}
	return out
}

// SlotSpan returns the start and end instants of the slot beginning at tod
// on the given day.
func SlotSpan(day time.Time, tod TimeOfDay) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, 0, 0, day.Location())
	return start, start.Add(SlotDuration)
}

// ReminderWindow is the start-instant range a reminder sweep scans. The
// sweep cadence and the before/after slack must move together: the window
// has to cover at least one full cadence step around now+lead or slots are
// missed, and no more or reminders duplicate across consecutive sweeps.
func ReminderWindow(now time.Time, lead, before, after time.Duration) (time.Time, time.Time) {
	target := now.Add(lead).Truncate(time.Minute)
	return target.Add(-before), target.Add(after)
}

// FormatDay renders a calendar day the way user-facing messages show it.
func FormatDay(t time.Time) string {
	return t.Format("02.01")
}

// FormatClock renders the wall-clock start of a slot.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// FormatSlot renders a full slot label, day and time.
func FormatSlot(t time.Time) string {
	return t.Format("02.01 15:04")
}
