package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/escrow"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/ics"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
)

// CalendarEvent renders a confirmed booking as an RFC 5545 .ics file.
// Pure read plus string formatting; nothing is persisted.
func (h *Handler) CalendarEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	bookingID := strings.TrimSpace(r.URL.Query().Get("booking_id"))
	if bookingID == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	inv, err := h.invites.Get(r.Context(), bookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, escrow.ErrNotFound.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	if inv.InviterID != userID && inv.InviteeID != userID {
		http.Error(w, escrow.ErrUnauthorized.Error(), http.StatusForbidden)
		return
	}
	if inv.Status != model.InviteAccepted && inv.Status != model.InviteCompleted {
		http.Error(w, "booking is not confirmed", http.StatusConflict)
		return
	}
	if inv.ScheduledTime == nil {
		http.Error(w, "booking has no scheduled time", http.StatusConflict)
		return
	}

	location := ""
	summary := "DANA date"
	if inv.VenueID != nil {
		name, address, err := h.invites.VenueInfo(r.Context(), *inv.VenueID)
		if err == nil {
			summary = "DANA date at " + name
			location = address
		}
	}

	rendered := ics.Render(ics.Event{
		UID:         inv.ID + "@dana",
		Start:       *inv.ScheduledTime,
		Summary:     summary,
		Location:    location,
		Description: "Confirmed via DANA",
	}, time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="booking.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rendered))
}
