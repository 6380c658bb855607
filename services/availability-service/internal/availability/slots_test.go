package availability

import (
	"testing"
	"time"
)

func hourSlots(day time.Time, hours ...int) []Slot {
	var out []Slot
	for _, h := range hours {
		start := day.Add(time.Duration(h) * time.Hour)
		out = append(out, Slot{Start: start, End: start.Add(time.Hour)})
	}
	return out
}

func TestWithinVenueHours(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	hours := &VenueHours{DayOfWeek: 1, OpensAtHour: 9, ClosesAtHour: 17}

	cases := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true},
		{12, true},
		{16, true},
		{17, false},
		{22, false},
	}
	for _, tc := range cases {
		got := WithinVenueHours(day.Add(time.Duration(tc.hour)*time.Hour), hours)
		if got != tc.want {
			t.Fatalf("hour %d: got %v, want %v", tc.hour, got, tc.want)
		}
	}

	if !WithinVenueHours(day, nil) {
		t.Fatal("nil venue hours must not constrain slots")
	}
}

func TestClipToVenueHours(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	hours := &VenueHours{DayOfWeek: 1, OpensAtHour: 10, ClosesAtHour: 14}

	clipped := ClipToVenueHours(hourSlots(day, 8, 10, 13, 14, 18), hours)
	if len(clipped) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(clipped))
	}
	if clipped[0].Start.Hour() != 10 || clipped[1].Start.Hour() != 13 {
		t.Fatalf("unexpected clipped slots: %v", clipped)
	}
}

func TestFilterSlots_ViewSemantics(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots := hourSlots(day, 9, 10, 11, 12, 13)

	conflictsA := []Interval{{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}}
	conflictsB := []Interval{{Start: day.Add(12 * time.Hour), End: day.Add(13 * time.Hour)}}

	both := FilterSlots(slots, conflictsA, conflictsB, nil, ViewBoth, time.Hour)
	onlyA := FilterSlots(slots, conflictsA, conflictsB, nil, ViewRequester, time.Hour)
	onlyB := FilterSlots(slots, conflictsA, conflictsB, nil, ViewReceiver, time.Hour)

	if len(both) != 3 {
		t.Fatalf("both: expected 3 slots, got %d", len(both))
	}
	if len(onlyA) != 4 || len(onlyB) != 4 {
		t.Fatalf("marginals: expected 4 each, got %d and %d", len(onlyA), len(onlyB))
	}

	// The intersection must be a subset of either marginal view.
	for _, view := range [][]time.Time{onlyA, onlyB} {
		for _, s := range both {
			found := false
			for _, m := range view {
				if m.Equal(s) {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("slot %s in 'both' missing from marginal view", s.Format(time.RFC3339))
			}
		}
	}
}

func TestFilterSlots_VenueHoursGateFirst(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots := hourSlots(day, 8, 9, 10)
	hours := &VenueHours{DayOfWeek: 1, OpensAtHour: 9, ClosesAtHour: 11}

	got := FilterSlots(slots, nil, nil, hours, ViewBoth, time.Hour)
	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got))
	}
	if got[0].Hour() != 9 || got[1].Hour() != 10 {
		t.Fatalf("unexpected slots: %v", got)
	}
}

func TestFilterSlots_PartialOverlapBlocks(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots := hourSlots(day, 9)

	// Busy 09:30-09:45 overlaps a 60-minute slot starting 09:00.
	busy := []Interval{{Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)}}
	if got := FilterSlots(slots, busy, nil, nil, ViewBoth, time.Hour); len(got) != 0 {
		t.Fatalf("expected slot blocked by partial overlap, got %v", got)
	}

	// A 15-minute meeting starting 09:00 ends before the busy block begins.
	if got := FilterSlots(slots, busy, nil, nil, ViewBoth, 15*time.Minute); len(got) != 1 {
		t.Fatalf("expected short slot to fit, got %v", got)
	}
}

func TestFilterSlots_Dedupes(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	slots := append(hourSlots(day, 9), hourSlots(day, 9)...)
	got := FilterSlots(slots, nil, nil, nil, ViewBoth, time.Hour)
	if len(got) != 1 {
		t.Fatalf("expected deduplicated slot list, got %d entries", len(got))
	}
}

func TestGridSlots_Basic(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := GridSlots(windowStart, windowEnd, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	if !slots[1].Start.Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Start.Format(time.RFC3339))
	}
}

func TestGridSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	now := day.Add(9*time.Hour + 31*time.Minute)

	slots := GridSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 15*time.Minute, 15*time.Minute, nil, now)
	// 09:00, 09:15, 09:30 are in the past (start < now). 09:45 is future.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Start.Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestGridSlots_DegenerateWindows(t *testing.T) {
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := GridSlots(day, day, 15*time.Minute, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("empty window should produce no slots, got %v", got)
	}
	if got := GridSlots(day, day.Add(10*time.Minute), 15*time.Minute, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("window shorter than duration should produce no slots, got %v", got)
	}
	if got := GridSlots(day, day.Add(time.Hour), 0, 15*time.Minute, nil, day); got != nil {
		t.Fatalf("non-positive duration should produce no slots, got %v", got)
	}
}
