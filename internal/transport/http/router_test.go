package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"slotbot/internal/domain"
	"slotbot/internal/service/scheduling"
	"slotbot/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	defineSlot         func(ctx context.Context, start, end time.Time) (bool, error)
	removeSlotByStart  func(ctx context.Context, start time.Time) (*int64, error)
	listSlotsOnDay     func(ctx context.Context, day time.Time) ([]time.Time, error)
	listFreeUpcoming   func(ctx context.Context, now time.Time) ([]domain.FreeSlot, error)
	slotStart          func(ctx context.Context, slotID uuid.UUID) (time.Time, error)
	clearDay           func(ctx context.Context, day time.Time) error
	clearAll           func(ctx context.Context) error
	tryBook            func(ctx context.Context, userID int64, slotID uuid.UUID, displayName string) (store.BookOutcome, error)
	cancel             func(ctx context.Context, bookingID uuid.UUID) error
	listForUser        func(ctx context.Context, userID int64, now time.Time) ([]domain.UserBookingView, error)
	countActiveForUser func(ctx context.Context, userID int64, now time.Time) (int, error)
	startOf            func(ctx context.Context, bookingID uuid.UUID) (time.Time, error)
	allBookings        func(ctx context.Context) ([]domain.ReportEntry, error)
	forDay             func(ctx context.Context, day time.Time) ([]domain.ReportEntry, error)
	forRange           func(ctx context.Context, from, to time.Time) ([]domain.ReminderEntry, error)
	setDisplayName     func(ctx context.Context, userID int64, name string) error
	displayName        func(ctx context.Context, userID int64) (string, error)
}

func (f *fakeStore) DefineSlot(ctx context.Context, start, end time.Time) (bool, error) {
	if f.defineSlot == nil {
		panic("unexpected DefineSlot call")
	}
	return f.defineSlot(ctx, start, end)
}

func (f *fakeStore) RemoveSlotByStart(ctx context.Context, start time.Time) (*int64, error) {
	if f.removeSlotByStart == nil {
		panic("unexpected RemoveSlotByStart call")
	}
	return f.removeSlotByStart(ctx, start)
}

func (f *fakeStore) ListSlotsOnDay(ctx context.Context, day time.Time) ([]time.Time, error) {
	if f.listSlotsOnDay == nil {
		panic("unexpected ListSlotsOnDay call")
	}
	return f.listSlotsOnDay(ctx, day)
}

func (f *fakeStore) ListFreeUpcoming(ctx context.Context, now time.Time) ([]domain.FreeSlot, error) {
	if f.listFreeUpcoming == nil {
		panic("unexpected ListFreeUpcoming call")
	}
	return f.listFreeUpcoming(ctx, now)
}

func (f *fakeStore) SlotStart(ctx context.Context, slotID uuid.UUID) (time.Time, error) {
	if f.slotStart == nil {
		panic("unexpected SlotStart call")
	}
	return f.slotStart(ctx, slotID)
}

func (f *fakeStore) ClearDay(ctx context.Context, day time.Time) error {
	if f.clearDay == nil {
		panic("unexpected ClearDay call")
	}
	return f.clearDay(ctx, day)
}

func (f *fakeStore) ClearAll(ctx context.Context) error {
	if f.clearAll == nil {
		panic("unexpected ClearAll call")
	}
	return f.clearAll(ctx)
}

func (f *fakeStore) TryBook(ctx context.Context, userID int64, slotID uuid.UUID, displayName string) (store.BookOutcome, error) {
	if f.tryBook == nil {
		panic("unexpected TryBook call")
	}
	return f.tryBook(ctx, userID, slotID, displayName)
}

func (f *fakeStore) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	if f.cancel == nil {
		panic("unexpected Cancel call")
	}
	return f.cancel(ctx, bookingID)
}

func (f *fakeStore) ListForUser(ctx context.Context, userID int64, now time.Time) ([]domain.UserBookingView, error) {
	if f.listForUser == nil {
		panic("unexpected ListForUser call")
	}
	return f.listForUser(ctx, userID, now)
}

func (f *fakeStore) CountActiveForUser(ctx context.Context, userID int64, now time.Time) (int, error) {
	if f.countActiveForUser == nil {
		panic("unexpected CountActiveForUser call")
	}
	return f.countActiveForUser(ctx, userID, now)
}

func (f *fakeStore) StartOf(ctx context.Context, bookingID uuid.UUID) (time.Time, error) {
	if f.startOf == nil {
		panic("unexpected StartOf call")
	}
	return f.startOf(ctx, bookingID)
}

func (f *fakeStore) AllBookings(ctx context.Context) ([]domain.ReportEntry, error) {
	if f.allBookings == nil {
		panic("unexpected AllBookings call")
	}
	return f.allBookings(ctx)
}

func (f *fakeStore) ForDay(ctx context.Context, day time.Time) ([]domain.ReportEntry, error) {
	if f.forDay == nil {
		panic("unexpected ForDay call")
	}
	return f.forDay(ctx, day)
}

func (f *fakeStore) ForRange(ctx context.Context, from, to time.Time) ([]domain.ReminderEntry, error) {
	if f.forRange == nil {
		panic("unexpected ForRange call")
	}
	return f.forRange(ctx, from, to)
}

func (f *fakeStore) SetDisplayName(ctx context.Context, userID int64, name string) error {
	if f.setDisplayName == nil {
		panic("unexpected SetDisplayName call")
	}
	return f.setDisplayName(ctx, userID, name)
}

func (f *fakeStore) DisplayName(ctx context.Context, userID int64) (string, error) {
	if f.displayName == nil {
		panic("unexpected DisplayName call")
	}
	return f.displayName(ctx, userID)
}

func newTestRouter(t *testing.T, f *fakeStore) http.Handler {
	t.Helper()
	engine := scheduling.NewEngine(f, f, f, nil, nil, scheduling.Options{
		Location: time.UTC,
	})
	return NewRouter(engine, RouterConfig{
		AdminIDs:       []int64{99},
		RequestTimeout: 5 * time.Second,
		Location:       time.UTC,
	}, nil)
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e.Code
}

func TestRegisterEndpoint(t *testing.T) {
	f := &fakeStore{
		setDisplayName: func(ctx context.Context, userID int64, name string) error {
			if userID != 1 || name != "Ann Lee (@annlee)" {
				t.Fatalf("SetDisplayName(%d, %q)", userID, name)
			}
			return nil
		},
	}
	router := newTestRouter(t, f)

	rec := doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"user_id": 1, "name": "Ann Lee", "handle": "annlee"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/register",
		map[string]any{"user_id": 1, "name": "Ann"}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_name" {
		t.Fatalf("code = %q, want invalid_name", code)
	}
}

func TestBookEndpointOutcomes(t *testing.T) {
	slotID := uuid.New()
	start := time.Now().Add(3 * time.Hour).UTC()

	t.Run("not registered", func(t *testing.T) {
		f := &fakeStore{
			displayName: func(ctx context.Context, userID int64) (string, error) {
				return "", store.ErrNotFound
			},
		}
		rec := doJSON(t, newTestRouter(t, f), http.MethodPost, "/bookings",
			map[string]any{"user_id": 1, "slot_id": slotID}, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if code := errorCode(t, rec); code != "not_registered" {
			t.Fatalf("code = %q", code)
		}
	})

	t.Run("slot taken", func(t *testing.T) {
		f := &fakeStore{
			displayName: func(ctx context.Context, userID int64) (string, error) {
				return "Ann Lee", nil
			},
			countActiveForUser: func(ctx context.Context, userID int64, now time.Time) (int, error) {
				return 0, nil
			},
			slotStart: func(ctx context.Context, id uuid.UUID) (time.Time, error) {
				return start, nil
			},
			tryBook: func(ctx context.Context, userID int64, id uuid.UUID, displayName string) (store.BookOutcome, error) {
				return store.BookTakenByOther, nil
			},
		}
		rec := doJSON(t, newTestRouter(t, f), http.MethodPost, "/bookings",
			map[string]any{"user_id": 1, "slot_id": slotID}, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if code := errorCode(t, rec); code != "slot_taken" {
			t.Fatalf("code = %q", code)
		}
	})

	t.Run("success", func(t *testing.T) {
		f := &fakeStore{
			displayName: func(ctx context.Context, userID int64) (string, error) {
				return "Ann Lee", nil
			},
			countActiveForUser: func(ctx context.Context, userID int64, now time.Time) (int, error) {
				return 0, nil
			},
			slotStart: func(ctx context.Context, id uuid.UUID) (time.Time, error) {
				return start, nil
			},
			tryBook: func(ctx context.Context, userID int64, id uuid.UUID, displayName string) (store.BookOutcome, error) {
				return store.BookSuccess, nil
			},
		}
		rec := doJSON(t, newTestRouter(t, f), http.MethodPost, "/bookings",
			map[string]any{"user_id": 1, "slot_id": slotID}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestCancelEndpointOwnership(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()
	start := time.Now().Add(3 * time.Hour).UTC()

	f := &fakeStore{
		displayName: func(ctx context.Context, userID int64) (string, error) {
			return "Ann Lee", nil
		},
		listForUser: func(ctx context.Context, userID int64, now time.Time) ([]domain.UserBookingView, error) {
			return []domain.UserBookingView{{BookingID: mine, StartTime: start}}, nil
		},
		startOf: func(ctx context.Context, bookingID uuid.UUID) (time.Time, error) {
			return start, nil
		},
		cancel: func(ctx context.Context, bookingID uuid.UUID) error {
			return nil
		},
	}
	router := newTestRouter(t, f)

	rec := doJSON(t, router, http.MethodDelete, "/bookings/"+other.String()+"?user_id=1", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign booking status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/bookings/"+mine.String()+"?user_id=1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own booking status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminGate(t *testing.T) {
	f := &fakeStore{
		allBookings: func(ctx context.Context) ([]domain.ReportEntry, error) {
			return []domain.ReportEntry{}, nil
		},
	}
	router := newTestRouter(t, f)

	rec := doJSON(t, router, http.MethodGet, "/admin/bookings", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/admin/bookings", nil, map[string]string{"X-Admin-ID": "7"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/admin/bookings", nil, map[string]string{"X-Admin-ID": "99"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestReconcileDefaultGrid(t *testing.T) {
	day := time.Now().AddDate(0, 0, 1)
	var defined []time.Time

	f := &fakeStore{
		listSlotsOnDay: func(ctx context.Context, d time.Time) ([]time.Time, error) {
			return nil, nil
		},
		defineSlot: func(ctx context.Context, start, end time.Time) (bool, error) {
			defined = append(defined, start)
			return true, nil
		},
	}
	router := newTestRouter(t, f)

	rec := doJSON(t, router, http.MethodPut, "/admin/days/"+day.UTC().Format(dateFormat)+"/slots",
		nil, map[string]string{"X-Admin-ID": "99"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	grid := domain.DefaultDaySlots()
	if len(defined) != len(grid) {
		t.Fatalf("defined %d slots, want %d", len(defined), len(grid))
	}

	var res struct {
		Added   int `json:"added"`
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if res.Added != len(grid) || res.Removed != 0 {
		t.Fatalf("added = %d, removed = %d", res.Added, res.Removed)
	}
}

func TestMalformedDate(t *testing.T) {
	router := newTestRouter(t, &fakeStore{})

	rec := doJSON(t, router, http.MethodGet, "/days/not-a-date/slots", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
