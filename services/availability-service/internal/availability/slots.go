package availability

import (
	"sort"
	"time"
)

// Interval is a half-open busy period [Start, End) pulled from a
// party's external calendar. Intervals are never persisted.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate meeting window.
type Slot struct {
	Start time.Time
	End   time.Time
}

// VenueHours are a venue's operating hours for one day of the week,
// at hour granularity.
type VenueHours struct {
	DayOfWeek    int
	OpensAtHour  int
	ClosesAtHour int
}

// View selects whose busy intervals are honored when filtering slots.
type View string

const (
	// ViewBoth keeps a slot only when both parties are free.
	ViewBoth View = "both"
	// ViewRequester honors only the requesting party's conflicts.
	ViewRequester View = "userA"
	// ViewReceiver honors only the receiving party's conflicts.
	ViewReceiver View = "userB"
)

// ParseView maps a wire value to a View, defaulting to ViewBoth.
func ParseView(raw string) View {
	switch View(raw) {
	case ViewRequester:
		return ViewRequester
	case ViewReceiver:
		return ViewReceiver
	default:
		return ViewBoth
	}
}

// WithinVenueHours reports whether a start instant falls inside the
// venue's operating hours. A nil hours value means the venue imposes
// no constraint. The check is hour-granular: opens <= hour < closes.
func WithinVenueHours(start time.Time, hours *VenueHours) bool {
	if hours == nil {
		return true
	}
	h := start.Hour()
	return h >= hours.OpensAtHour && h < hours.ClosesAtHour
}

// ClipToVenueHours drops slots whose start falls outside the venue's
// operating hours.
func ClipToVenueHours(slots []Slot, hours *VenueHours) []Slot {
	if hours == nil {
		return slots
	}
	var out []Slot
	for _, s := range slots {
		if WithinVenueHours(s.Start, hours) {
			out = append(out, s)
		}
	}
	return out
}

// Overlaps reports whether [start, end) overlaps any busy interval.
func Overlaps(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// FilterSlots computes the candidate start times at which a meeting of
// the given duration could happen. A slot must fall within venue hours
// first; it is then tested against the requester's conflicts
// (conflictsA), the receiver's (conflictsB), or both, depending on
// view. The result is sorted and deduplicated.
func FilterSlots(slots []Slot, conflictsA, conflictsB []Interval, hours *VenueHours, view View, duration time.Duration) []time.Time {
	if duration <= 0 {
		return nil
	}

	var out []time.Time
	seen := make(map[int64]struct{}, len(slots))
	for _, s := range slots {
		if !WithinVenueHours(s.Start, hours) {
			continue
		}
		end := s.Start.Add(duration)
		switch view {
		case ViewRequester:
			if Overlaps(s.Start, end, conflictsA) {
				continue
			}
		case ViewReceiver:
			if Overlaps(s.Start, end, conflictsB) {
				continue
			}
		default:
			if Overlaps(s.Start, end, conflictsA) || Overlaps(s.Start, end, conflictsB) {
				continue
			}
		}
		key := s.Start.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s.Start)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// GridSlots generates candidate slots on a fixed step within
// [windowStart, windowEnd), skipping starts in the past and starts
// where the full duration would overlap a busy interval. It is used
// when neither party has a linked calendar and the venue's operating
// hours are the only constraint.
//
// All times are expected to be in the same location (timezone).
func GridSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []Slot {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []Slot
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !Overlaps(t, t.Add(duration), busy) {
			slots = append(slots, Slot{Start: t, End: t.Add(duration)})
		}
	}
	return slots
}
