package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slotbot/internal/domain"
	"slotbot/internal/notify"
)

// DailyReportAndClear returns the day's bookings and wipes the day's
// slots. The read and the clear are separate operations: the job runs
// after the day's slots are in the past, so nothing new appears between
// them.
func (e *Engine) DailyReportAndClear(ctx context.Context, day time.Time) ([]domain.ReportEntry, error) {
	entries, err := e.ledger.ForDay(ctx, day)
	if err != nil {
		return nil, err
	}
	if err := e.schedule.ClearDay(ctx, day); err != nil {
		return nil, err
	}
	return entries, nil
}

// TomorrowReport returns the bookings planned for the given day.
func (e *Engine) TomorrowReport(ctx context.Context, day time.Time) ([]domain.ReportEntry, error) {
	return e.ledger.ForDay(ctx, day)
}

// UpcomingReminders finds bookings starting inside the reminder window
// and dispatches a reminder to each holder. It returns how many were
// dispatched.
func (e *Engine) UpcomingReminders(ctx context.Context) (int, error) {
	from, to := domain.ReminderWindow(e.now(), e.opts.ReminderLead, e.opts.ReminderBefore, e.opts.ReminderAfter)

	entries, err := e.ledger.ForRange(ctx, from, to)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		e.dispatch(notify.Message{
			UserID: entry.UserID,
			Text:   reminderText(entry, e.opts.Location),
		})
	}
	if len(entries) > 0 {
		e.log.Info("reminders dispatched",
			slog.Int("count", len(entries)),
			slog.Time("from", from),
			slog.Time("to", to),
		)
	}
	return len(entries), nil
}

// FormatDayReport renders an admin report for one day.
func FormatDayReport(day time.Time, entries []domain.ReportEntry) string {
	header := fmt.Sprintf("Report for %s:", domain.FormatDay(day))
	if len(entries) == 0 {
		return header + "\nNo bookings."
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, header)
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s - %s",
			domain.FormatClock(entry.StartTime.In(day.Location())), entry.DisplayName))
	}
	return strings.Join(lines, "\n")
}

func reminderText(entry domain.ReminderEntry, loc *time.Location) string {
	return fmt.Sprintf("Hi, %s! Reminder: your session today at %s.",
		entry.DisplayName, domain.FormatClock(entry.StartTime.In(loc)))
}

func removalText(start time.Time) string {
	return fmt.Sprintf("Your booking for %s was cancelled by the administrator.",
		domain.FormatSlot(start))
}
