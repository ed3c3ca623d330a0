package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"slotbot/internal/domain"
	"slotbot/internal/notify"
	"slotbot/internal/service/scheduling"
)

type Dispatcher interface {
	Dispatch(msg notify.Message)
}

// Handlers run the periodic jobs against the engine and push the
// resulting texts to the configured admin chats.
type Handlers struct {
	engine     *scheduling.Engine
	dispatcher Dispatcher
	adminIDs   []int64
	loc        *time.Location
	log        *slog.Logger
}

func NewHandlers(engine *scheduling.Engine, dispatcher Dispatcher, adminIDs []int64, loc *time.Location, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{
		engine:     engine,
		dispatcher: dispatcher,
		adminIDs:   adminIDs,
		loc:        loc,
		log:        log.With(slog.String("component", "jobs")),
	}
}

func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDailyReport, h.handleDailyReport)
	mux.HandleFunc(TypeTomorrowReport, h.handleTomorrowReport)
	mux.HandleFunc(TypeReminderSweep, h.handleReminderSweep)
	return mux
}

// handleDailyReport reports today's bookings to the admins and wipes the
// day's slots afterwards.
func (h *Handlers) handleDailyReport(ctx context.Context, _ *asynq.Task) error {
	day := domain.Day(time.Now().In(h.loc))

	entries, err := h.engine.DailyReportAndClear(ctx, day)
	if err != nil {
		h.log.Error("daily report failed", slog.Any("err", err))
		return fmt.Errorf("daily report: %w", err)
	}

	h.broadcast(scheduling.FormatDayReport(day, entries))
	h.log.Info("daily report dispatched",
		slog.Time("day", day),
		slog.Int("bookings", len(entries)),
	)
	return nil
}

func (h *Handlers) handleTomorrowReport(ctx context.Context, _ *asynq.Task) error {
	day := domain.Day(time.Now().In(h.loc)).AddDate(0, 0, 1)

	entries, err := h.engine.TomorrowReport(ctx, day)
	if err != nil {
		h.log.Error("tomorrow report failed", slog.Any("err", err))
		return fmt.Errorf("tomorrow report: %w", err)
	}

	h.broadcast(scheduling.FormatDayReport(day, entries))
	return nil
}

func (h *Handlers) handleReminderSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := h.engine.UpcomingReminders(ctx)
	if err != nil {
		h.log.Error("reminder sweep failed", slog.Any("err", err))
		return fmt.Errorf("reminder sweep: %w", err)
	}
	if n > 0 {
		h.log.Info("reminder sweep done", slog.Int("dispatched", n))
	}
	return nil
}

func (h *Handlers) broadcast(text string) {
	for _, id := range h.adminIDs {
		h.dispatcher.Dispatch(notify.Message{UserID: id, Text: text})
	}
}
