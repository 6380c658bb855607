package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/storage"
)

type VenuesHandler struct {
	venues *storage.VenueRepository
	logger *slog.Logger
}

func NewVenuesHandler(venues *storage.VenueRepository, logger *slog.Logger) *VenuesHandler {
	return &VenuesHandler{venues: venues, logger: logger}
}

func (h *VenuesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	venues, err := h.venues.List(r.Context(), 100)
	if err != nil {
		h.logger.Error("venue list failed", "err", err)
		http.Error(w, "failed to list venues", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(venues))
	for _, v := range venues {
		out = append(out, map[string]any{
			"id":      v.ID,
			"name":    v.Name,
			"address": v.Address,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": out})
}

type venueHoursRequest struct {
	DayOfWeek    int `json:"day_of_week"`
	OpensAtHour  int `json:"opens_at_hour"`
	ClosesAtHour int `json:"closes_at_hour"`
}

// Admin creates a venue with its weekly hours. The gateway only routes
// admins here; the role header check is a second line of defense.
func (h *VenuesHandler) Admin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-Role") != "admin" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req struct {
		Name    string              `json:"name"`
		Address string              `json:"address"`
		Hours   []venueHoursRequest `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	for _, hr := range req.Hours {
		if hr.DayOfWeek < 0 || hr.DayOfWeek > 6 {
			http.Error(w, "day_of_week must be between 0 and 6", http.StatusBadRequest)
			return
		}
		if hr.OpensAtHour < 0 || hr.ClosesAtHour > 23 || hr.OpensAtHour >= hr.ClosesAtHour {
			http.Error(w, "invalid opens_at_hour/closes_at_hour", http.StatusBadRequest)
			return
		}
	}

	id, err := h.venues.Create(r.Context(), req.Name, req.Address)
	if err != nil {
		h.logger.Error("venue create failed", "err", err)
		http.Error(w, "failed to create venue", http.StatusInternalServerError)
		return
	}
	for _, hr := range req.Hours {
		if err := h.venues.UpsertHours(r.Context(), id, hr.DayOfWeek, hr.OpensAtHour, hr.ClosesAtHour); err != nil {
			h.logger.Error("venue hours upsert failed", "err", err, "venue_id", id)
			http.Error(w, "failed to store venue hours", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}
