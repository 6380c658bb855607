package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestCalComAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/availability" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("username"); got != "alice" {
			t.Fatalf("unexpected username %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slots":[{"time":"2026-03-09T09:00:00Z"},{"time":"2026-03-09T11:00:00Z"},{"time":"bogus"}]}`))
	}))
	defer srv.Close()

	client := NewCalComClient(srv.URL, nil, testLogger())
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots, err := client.Availability(context.Background(), "https://cal.com/alice", from, from.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots (bogus entry skipped), got %d", len(slots))
	}
	if !slots[0].Start.Equal(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first slot start: %s", slots[0].Start)
	}
	if slots[0].End.Sub(slots[0].Start) != time.Hour {
		t.Fatalf("cal.com slots must be one hour, got %s", slots[0].End.Sub(slots[0].Start))
	}
}

func TestCalComAvailability_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewCalComClient(srv.URL, nil, testLogger())
	from := time.Now().UTC()
	if _, err := client.Availability(context.Background(), "https://cal.com/alice", from, from.Add(24*time.Hour)); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestClient_UnsupportedProviders(t *testing.T) {
	client := NewClient(NewCalComClient("", nil, testLogger()), testLogger())
	from := time.Now().UTC()

	for _, link := range []string{
		"https://calendly.com/carol",
		"https://example.com/feed.ics",
		"https://example.com",
	} {
		_, err := client.FetchSlots(context.Background(), link, from, from.Add(24*time.Hour))
		var unsupported *UnsupportedProviderError
		if !errors.As(err, &unsupported) {
			t.Fatalf("link %q: expected UnsupportedProviderError, got %v", link, err)
		}
	}
}

func TestBusyFromSlots(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	from := day.Add(9 * time.Hour)
	to := day.Add(13 * time.Hour)

	free := []availability.Slot{
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
		{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)},
	}

	busy := BusyFromSlots(free, from, to)
	if len(busy) != 2 {
		t.Fatalf("expected 2 busy intervals, got %d", len(busy))
	}
	if !busy[0].Start.Equal(from) || !busy[0].End.Equal(day.Add(10*time.Hour)) {
		t.Fatalf("unexpected first busy interval: %+v", busy[0])
	}
	if !busy[1].Start.Equal(day.Add(11*time.Hour)) || !busy[1].End.Equal(day.Add(12*time.Hour)) {
		t.Fatalf("unexpected second busy interval: %+v", busy[1])
	}
}

func TestBusyFromSlots_UnorderedInput(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	from := day.Add(9 * time.Hour)
	to := day.Add(13 * time.Hour)

	// Providers return slots in arbitrary order; the inversion must not
	// mark an earlier free slot as busy because a later one came first.
	free := []availability.Slot{
		{Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
	}

	busy := BusyFromSlots(free, from, to)
	if len(busy) != 2 {
		t.Fatalf("expected 2 busy intervals, got %d: %+v", len(busy), busy)
	}
	if !busy[0].Start.Equal(day.Add(10*time.Hour)) || !busy[0].End.Equal(day.Add(11*time.Hour)) {
		t.Fatalf("unexpected first busy interval: %+v", busy[0])
	}
	if !busy[1].Start.Equal(day.Add(12*time.Hour)) || !busy[1].End.Equal(to) {
		t.Fatalf("unexpected second busy interval: %+v", busy[1])
	}
	if !free[0].Start.Equal(day.Add(11 * time.Hour)) {
		t.Fatalf("input slice must not be reordered, got %+v", free[0])
	}
}
