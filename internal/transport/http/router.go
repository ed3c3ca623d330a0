package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slotbot/internal/service/scheduling"
)

type RouterConfig struct {
	AdminIDs       []int64
	RequestTimeout time.Duration
	Location       *time.Location
}

// NewRouter wires the JSON API in front of the scheduling engine. The
// admin group is gated on the configured id allow-list.
func NewRouter(engine *scheduling.Engine, cfg RouterConfig, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	h := &handler{
		engine: engine,
		loc:    loc,
		log:    log.With(slog.String("component", "transport.http")),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.RequestTimeout > 0 {
		r.Use(requestTimeout(cfg.RequestTimeout))
	}

	r.POST("/register", h.register)
	r.GET("/days", h.listDays)
	r.GET("/days/:date/slots", h.listFreeSlots)
	r.POST("/bookings", h.book)
	r.GET("/users/:id/bookings", h.listMyBookings)
	r.DELETE("/bookings/:id", h.cancel)

	admin := r.Group("/admin", adminOnly(cfg.AdminIDs))
	admin.PUT("/days/:date/slots", h.reconcileDay)
	admin.GET("/bookings", h.listAllBookings)
	admin.DELETE("/slots", h.clearAll)

	return r
}

// requestTimeout bounds each handler by deadline on the request context.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// adminOnly admits only requests carrying a configured admin id in the
// X-Admin-ID header. The gateway in front of us authenticates the chat
// and forwards the id.
func adminOnly(adminIDs []int64) gin.HandlerFunc {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Admin-ID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "Admin id required."})
			return
		}
		if _, ok := admins[id]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{Code: "forbidden", Message: "Not an administrator."})
			return
		}
		c.Next()
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed " + name + " parameter."})
		return 0, false
	}
	return v, true
}

func parseInt64Query(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Code: "invalid_request", Message: "Malformed " + name + " parameter."})
		return 0, false
	}
	return v, true
}
