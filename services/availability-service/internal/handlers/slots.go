package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/calendar"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/model"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/storage"
)

// Slot picker modes. The system never blocks booking because calendar
// sync failed: when no provider data is usable the client is told to
// fall back to manual proposal fields.
const (
	modeCalendar   = "calendar"
	modeVenueHours = "venue_hours"
	modeManual     = "manual"
)

type SlotsHandler struct {
	profiles *storage.ProfileRepository
	venues   *storage.VenueRepository
	cal      calendar.Fetcher
	logger   *slog.Logger
}

func NewSlotsHandler(profiles *storage.ProfileRepository, venues *storage.VenueRepository, cal calendar.Fetcher, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{profiles: profiles, venues: venues, cal: cal, logger: logger}
}

type slotsResponse struct {
	Mode   string   `json:"mode"`
	View   string   `json:"view"`
	Slots  []string `json:"slots"`
	Reason string   `json:"reason,omitempty"`
}

func (h *SlotsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requesterID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if requesterID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	receiverID := strings.TrimSpace(r.URL.Query().Get("receiver_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if receiverID == "" || dateStr == "" {
		http.Error(w, "receiver_id and date are required", http.StatusBadRequest)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	intent := strings.TrimSpace(r.URL.Query().Get("intent_type"))
	if intent == "" {
		intent = model.IntentSocial
	}
	if !model.ValidIntent(intent) {
		http.Error(w, "invalid intent_type", http.StatusBadRequest)
		return
	}

	durationMins := 60
	if v := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		durationMins = n
	}
	duration := time.Duration(durationMins) * time.Minute
	view := availability.ParseView(strings.TrimSpace(r.URL.Query().Get("view")))

	ctx := r.Context()

	receiver, err := h.profiles.Get(ctx, receiverID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	requester, err := h.profiles.Get(ctx, requesterID)
	if err != nil && !storage.IsNotFound(err) {
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	// Venue hours are resolved for the requested date's weekday (UTC).
	var hours *availability.VenueHours
	if venueID := strings.TrimSpace(r.URL.Query().Get("venue_id")); venueID != "" {
		hours, err = h.venues.HoursFor(ctx, venueID, int(day.Weekday()))
		if err != nil {
			http.Error(w, "failed to load venue hours", http.StatusInternalServerError)
			return
		}
	}

	from := day
	to := day.AddDate(0, 0, 1)

	receiverSlots, reason := h.fetchSlots(ctx, receiver.CalendarLinkFor(intent), from, to)
	if receiverSlots == nil {
		// Degrade to manual proposals; venue hours alone still give a
		// usable grid when present.
		if hours != nil {
			h.writeVenueHoursGrid(w, day, hours, duration, view)
			return
		}
		writeJSON(w, http.StatusOK, slotsResponse{
			Mode:   modeManual,
			View:   string(view),
			Slots:  []string{},
			Reason: reason,
		})
		return
	}

	conflictsB := calendar.BusyFromSlots(receiverSlots, from, to)
	var conflictsA []availability.Interval
	if link := requester.CalendarLinkFor(intent); link != "" {
		if busy, err := h.cal.FetchBusy(ctx, link, from, to); err == nil {
			conflictsA = busy
		} else {
			// The requester's calendar never blocks slot computation.
			h.logger.Warn("requester calendar unavailable, treating as free", "err", err)
		}
	}

	starts := availability.FilterSlots(receiverSlots, conflictsA, conflictsB, hours, view, duration)
	writeJSON(w, http.StatusOK, slotsResponse{
		Mode:  modeCalendar,
		View:  string(view),
		Slots: formatSlots(starts),
	})
}

// fetchSlots returns nil slots plus a human-readable reason when the
// receiver's calendar cannot produce data.
func (h *SlotsHandler) fetchSlots(ctx context.Context, link string, from, to time.Time) ([]availability.Slot, string) {
	if strings.TrimSpace(link) == "" {
		return nil, "no calendar linked"
	}
	slots, err := h.cal.FetchSlots(ctx, link, from, to)
	if err != nil {
		var unsupported *calendar.UnsupportedProviderError
		if errors.As(err, &unsupported) {
			return nil, unsupported.Error()
		}
		h.logger.Warn("calendar fetch failed, degrading to manual proposals", "err", err)
		return nil, "calendar temporarily unavailable"
	}
	return slots, ""
}

func (h *SlotsHandler) writeVenueHoursGrid(w http.ResponseWriter, day time.Time, hours *availability.VenueHours, duration time.Duration, view availability.View) {
	windowStart := day.Add(time.Duration(hours.OpensAtHour) * time.Hour)
	windowEnd := day.Add(time.Duration(hours.ClosesAtHour) * time.Hour)
	grid := availability.GridSlots(windowStart, windowEnd, duration, time.Hour, nil, time.Now().UTC())

	var starts []time.Time
	for _, s := range grid {
		starts = append(starts, s.Start)
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		Mode:  modeVenueHours,
		View:  string(view),
		Slots: formatSlots(starts),
	})
}

func formatSlots(starts []time.Time) []string {
	out := make([]string, 0, len(starts))
	for _, s := range starts {
		out = append(out, s.UTC().Format(time.RFC3339))
	}
	return out
}
