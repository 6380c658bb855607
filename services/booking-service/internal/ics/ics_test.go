package ics

import (
	"strings"
	"testing"
	"time"
)

func parseFields(t *testing.T, rendered string) map[string]string {
	t.Helper()
	fields := map[string]string{}
	for _, line := range strings.Split(rendered, "\r\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			t.Fatalf("malformed content line: %q", line)
		}
		fields[parts[0]] = parts[1]
	}
	return fields
}

func TestRender_RoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	evt := Event{
		UID:         "booking-42@dana",
		Start:       start,
		Summary:     "Date at The Vaults",
		Location:    "12 Market St, London",
		Description: "Confirmed via DANA",
	}

	fields := parseFields(t, Render(evt, now))

	if fields["SUMMARY"] != "Date at The Vaults" {
		t.Fatalf("unexpected SUMMARY: %q", fields["SUMMARY"])
	}
	if fields["LOCATION"] != `12 Market St\, London` {
		t.Fatalf("unexpected LOCATION: %q", fields["LOCATION"])
	}
	if fields["STATUS"] != "CONFIRMED" {
		t.Fatalf("unexpected STATUS: %q", fields["STATUS"])
	}

	dtStart, err := time.Parse(timestampLayout, fields["DTSTART"])
	if err != nil {
		t.Fatalf("DTSTART unparseable: %v", err)
	}
	dtEnd, err := time.Parse(timestampLayout, fields["DTEND"])
	if err != nil {
		t.Fatalf("DTEND unparseable: %v", err)
	}
	if !dtStart.Equal(start) {
		t.Fatalf("DTSTART mismatch: %s", dtStart)
	}
	if dtEnd.Sub(dtStart) != 2*time.Hour {
		t.Fatalf("expected a 2 hour event, got %s", dtEnd.Sub(dtStart))
	}
}

func TestRender_NonUTCStart(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, cet)
	fields := parseFields(t, Render(Event{UID: "u", Start: start}, time.Now()))
	if fields["DTSTART"] != "20260314T190000Z" {
		t.Fatalf("expected UTC DTSTART, got %q", fields["DTSTART"])
	}
}

func TestEscape(t *testing.T) {
	got := escape("a;b,c\nd\\e")
	if got != `a\;b\,c\nd\\e` {
		t.Fatalf("unexpected escaping: %q", got)
	}
}
