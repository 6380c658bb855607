package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/calendar"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSlots_RequiresAuth(t *testing.T) {
	h := NewSlotsHandler(nil, nil, nil, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?receiver_id=u2&date=2026-03-09", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", rw.Code)
	}
}

func TestSlots_Validation(t *testing.T) {
	h := NewSlotsHandler(nil, nil, nil, testLogger())

	cases := []struct {
		name  string
		query string
	}{
		{"missing receiver", "date=2026-03-09"},
		{"missing date", "receiver_id=u2"},
		{"bad date", "receiver_id=u2&date=March+9"},
		{"bad intent", "receiver_id=u2&date=2026-03-09&intent_type=speed_dating"},
		{"zero duration", "receiver_id=u2&date=2026-03-09&duration_minutes=0"},
		{"huge duration", "receiver_id=u2&date=2026-03-09&duration_minutes=9999"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?"+tc.query, nil)
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		h.Slots(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rw.Code)
		}
	}
}

type fakeFetcher struct {
	slots []availability.Slot
	err   error
}

func (f fakeFetcher) FetchSlots(context.Context, string, time.Time, time.Time) ([]availability.Slot, error) {
	return f.slots, f.err
}

func (f fakeFetcher) FetchBusy(context.Context, string, time.Time, time.Time) ([]availability.Interval, error) {
	return nil, f.err
}

func TestFetchSlots_Degradation(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	h := NewSlotsHandler(nil, nil, fakeFetcher{}, testLogger())
	if slots, reason := h.fetchSlots(ctx, "  ", day, day.AddDate(0, 0, 1)); slots != nil || reason != "no calendar linked" {
		t.Fatalf("empty link: got slots=%v reason=%q", slots, reason)
	}

	h = NewSlotsHandler(nil, nil, fakeFetcher{err: &calendar.UnsupportedProviderError{Provider: calendar.ProviderCalendly}}, testLogger())
	slots, reason := h.fetchSlots(ctx, "https://calendly.com/carol", day, day.AddDate(0, 0, 1))
	if slots != nil || reason == "" {
		t.Fatalf("unsupported provider: got slots=%v reason=%q", slots, reason)
	}

	h = NewSlotsHandler(nil, nil, fakeFetcher{err: errors.New("boom")}, testLogger())
	if slots, reason := h.fetchSlots(ctx, "https://cal.com/alice", day, day.AddDate(0, 0, 1)); slots != nil || reason != "calendar temporarily unavailable" {
		t.Fatalf("fetch failure: got slots=%v reason=%q", slots, reason)
	}

	want := []availability.Slot{{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}}
	h = NewSlotsHandler(nil, nil, fakeFetcher{slots: want}, testLogger())
	slots, reason = h.fetchSlots(ctx, "https://cal.com/alice", day, day.AddDate(0, 0, 1))
	if len(slots) != 1 || reason != "" {
		t.Fatalf("healthy calendar: got slots=%v reason=%q", slots, reason)
	}
}

func TestSlots_MethodNotAllowed(t *testing.T) {
	h := NewSlotsHandler(nil, nil, nil, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}

func TestMeetingsCreate_Validation(t *testing.T) {
	h := NewMeetingsHandler(nil, nil, nil, testLogger())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing receiver", `{}`, http.StatusBadRequest},
		{"self meeting", `{"receiver_id":"u1"}`, http.StatusBadRequest},
		{"bad intent", `{"receiver_id":"u2","intent_type":"karaoke"}`, http.StatusBadRequest},
		{"short duration", `{"receiver_id":"u2","duration_minutes":5}`, http.StatusBadRequest},
		{"bad proposed time", `{"receiver_id":"u2","proposed_time":"tomorrow"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings", strings.NewReader(tc.body))
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		h.Meetings(rw, req)
		if rw.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rw.Code)
		}
	}
}

func TestMeetingsRespond_Validation(t *testing.T) {
	h := NewMeetingsHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/meetings/respond", strings.NewReader(`{"meeting_id":"m1","action":"maybe"}`))
	req.Header.Set("X-User-Id", "u1")
	rw := httptest.NewRecorder()
	h.Respond(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rw.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/meetings/respond", strings.NewReader(`{"action":"accept"}`))
	req.Header.Set("X-User-Id", "u1")
	rw = httptest.NewRecorder()
	h.Respond(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing meeting_id, got %d", rw.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/meetings/respond", strings.NewReader(`{"meeting_id":"m1","action":"accept"}`))
	rw = httptest.NewRecorder()
	h.Respond(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", rw.Code)
	}
}

func TestFormatSlots(t *testing.T) {
	starts := []time.Time{
		time.Date(2026, 3, 9, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
	}
	got := formatSlots(starts)
	if len(got) != 1 || got[0] != "2026-03-09T09:00:00Z" {
		t.Fatalf("expected UTC RFC 3339 slot, got %v", got)
	}
	if out := formatSlots(nil); len(out) != 0 {
		t.Fatalf("expected empty slice for nil input, got %v", out)
	}
}
