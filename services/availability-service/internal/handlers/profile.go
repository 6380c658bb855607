package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/calendar"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/storage"
)

type ProfileHandler struct {
	profiles *storage.ProfileRepository
	logger   *slog.Logger
}

func NewProfileHandler(profiles *storage.ProfileRepository, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

type calendarLinksRequest struct {
	CalendarLinkSocial   string `json:"calendar_link_social"`
	CalendarLinkBusiness string `json:"calendar_link_business"`
}

// CalendarLinks lets a user attach separate calendar links for social
// and business meetings. Links for providers we cannot read yet are
// stored anyway; the slot picker degrades to manual proposals for them.
func (h *ProfileHandler) CalendarLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getLinks(w, r)
	case http.MethodPut:
		h.updateLinks(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProfileHandler) getLinks(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calendar_link_social":   p.CalendarLinkSocial,
		"calendar_link_business": p.CalendarLinkBusiness,
	})
}

func (h *ProfileHandler) updateLinks(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req calendarLinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.CalendarLinkSocial = strings.TrimSpace(req.CalendarLinkSocial)
	req.CalendarLinkBusiness = strings.TrimSpace(req.CalendarLinkBusiness)

	providers := map[string]calendar.Provider{}
	for field, link := range map[string]string{
		"calendar_link_social":   req.CalendarLinkSocial,
		"calendar_link_business": req.CalendarLinkBusiness,
	} {
		if link == "" {
			continue
		}
		p := calendar.Detect(link)
		if p == calendar.ProviderUnknown {
			http.Error(w, field+": unrecognized calendar link", http.StatusBadRequest)
			return
		}
		providers[field] = p
	}

	if err := h.profiles.UpdateCalendarLinks(r.Context(), userID, req.CalendarLinkSocial, req.CalendarLinkBusiness); err != nil {
		h.logger.Error("calendar links update failed", "err", err)
		http.Error(w, "failed to update calendar links", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"status": "ok"}
	for field, p := range providers {
		if p != calendar.ProviderCalCom {
			resp["warning"] = field + ": provider " + string(p) + " is stored but not yet readable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
