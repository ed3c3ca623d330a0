package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slotbot/internal/domain"
	"slotbot/internal/service/scheduling"
)

const dateFormat = "2006-01-02"

type handler struct {
	engine *scheduling.Engine
	loc    *time.Location
	log    *slog.Logger
}

type registerRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Handle string `json:"handle"`
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed request body."})
		return
	}

	outcome := h.engine.Register(c.Request.Context(), req.UserID, req.Name, req.Handle)
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (h *handler) listDays(c *gin.Context) {
	days, outcome := h.engine.ListBookableDays(c.Request.Context())
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}

	// The engine already grouped the days in the configured location;
	// converting again here could shift them across midnight.
	out := make([]string, 0, len(days))
	for _, day := range days {
		out = append(out, day.Format(dateFormat))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

type slotView struct {
	SlotID    uuid.UUID `json:"slot_id"`
	StartTime time.Time `json:"start_time"`
	Label     string    `json:"label"`
}

func (h *handler) listFreeSlots(c *gin.Context) {
	day, ok := h.parseDay(c)
	if !ok {
		return
	}

	free, outcome := h.engine.ListFreeSlots(c.Request.Context(), day)
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}

	out := make([]slotView, 0, len(free))
	for _, s := range free {
		out = append(out, slotView{
			SlotID:    s.SlotID,
			StartTime: s.StartTime,
			Label:     domain.FormatClock(s.StartTime.In(h.loc)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

type bookRequest struct {
	UserID int64     `json:"user_id" binding:"required"`
	SlotID uuid.UUID `json:"slot_id" binding:"required"`
}

func (h *handler) book(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed request body."})
		return
	}

	res := h.engine.AttemptBooking(c.Request.Context(), req.UserID, req.SlotID)
	if res.Outcome != scheduling.OutcomeOK {
		writeOutcome(c, res.Outcome)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"start_time": res.StartTime,
		"label":      domain.FormatSlot(res.StartTime.In(h.loc)),
	})
}

type bookingView struct {
	BookingID uuid.UUID `json:"booking_id"`
	StartTime time.Time `json:"start_time"`
	Label     string    `json:"label"`
}

func (h *handler) listMyBookings(c *gin.Context) {
	userID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	mine, outcome := h.engine.ListMyBookings(c.Request.Context(), userID)
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}

	out := make([]bookingView, 0, len(mine))
	for _, b := range mine {
		out = append(out, bookingView{
			BookingID: b.BookingID,
			StartTime: b.StartTime,
			Label:     domain.FormatSlot(b.StartTime.In(h.loc)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

func (h *handler) cancel(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed booking id."})
		return
	}
	userID, ok := parseInt64Query(c, "user_id")
	if !ok {
		return
	}

	// A user may only cancel bookings they hold.
	mine, outcome := h.engine.ListMyBookings(c.Request.Context(), userID)
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}
	owned := false
	for _, b := range mine {
		if b.BookingID == bookingID {
			owned = true
			break
		}
	}
	if !owned {
		writeOutcome(c, scheduling.OutcomeNotFound)
		return
	}

	res := h.engine.AttemptCancel(c.Request.Context(), bookingID)
	if res.Outcome != scheduling.OutcomeOK {
		writeOutcome(c, res.Outcome)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "cancelled",
		"start_time": res.StartTime,
	})
}

type reconcileRequest struct {
	// Times holds "HH:MM" starts the day should end up with. When the
	// field is absent the full default grid is applied.
	Times *[]string `json:"times"`
}

type displacedView struct {
	UserID    int64     `json:"user_id"`
	StartTime time.Time `json:"start_time"`
}

func (h *handler) reconcileDay(c *gin.Context) {
	day, ok := h.parseDay(c)
	if !ok {
		return
	}

	// An empty body means "apply the default grid".
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed request body."})
		return
	}

	var desired []domain.TimeOfDay
	if req.Times == nil {
		desired = domain.DefaultDaySlots()
	} else {
		desired = make([]domain.TimeOfDay, 0, len(*req.Times))
		for _, raw := range *req.Times {
			tod, err := domain.ParseTimeOfDay(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed slot time " + raw + "."})
				return
			}
			desired = append(desired, tod)
		}
	}

	res, outcome := h.engine.AdminReconcileDay(c.Request.Context(), day, desired)
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}

	displaced := make([]displacedView, 0, len(res.Displaced))
	for _, d := range res.Displaced {
		displaced = append(displaced, displacedView{UserID: d.UserID, StartTime: d.StartTime})
	}
	c.JSON(http.StatusOK, gin.H{
		"added":     res.Added,
		"removed":   res.Removed,
		"notified":  res.Notified,
		"displaced": displaced,
	})
}

type reportView struct {
	StartTime   time.Time `json:"start_time"`
	Label       string    `json:"label"`
	DisplayName string    `json:"display_name"`
}

func (h *handler) listAllBookings(c *gin.Context) {
	entries, outcome := h.engine.AdminListAllBookings(c.Request.Context())
	if outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}

	out := make([]reportView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, reportView{
			StartTime:   entry.StartTime,
			Label:       domain.FormatSlot(entry.StartTime.In(h.loc)),
			DisplayName: entry.DisplayName,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

func (h *handler) clearAll(c *gin.Context) {
	if outcome := h.engine.AdminForceClearAll(c.Request.Context()); outcome != scheduling.OutcomeOK {
		writeOutcome(c, outcome)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) parseDay(c *gin.Context) (time.Time, bool) {
	day, err := time.ParseInLocation(dateFormat, c.Param("date"), h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed date, want YYYY-MM-DD."})
		return time.Time{}, false
	}
	return day, true
}
