package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
)

func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createInviteRequest struct {
	InviteeID     string `json:"invitee_id"`
	VenueID       string `json:"venue_id"`
	ScheduledTime string `json:"scheduled_time"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	inviterID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if inviterID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.InviteeID = strings.TrimSpace(req.InviteeID)
	if req.InviteeID == "" {
		http.Error(w, "invitee_id is required", http.StatusBadRequest)
		return
	}
	if req.InviteeID == inviterID {
		http.Error(w, "cannot invite yourself", http.StatusBadRequest)
		return
	}

	var scheduled *time.Time
	if s := strings.TrimSpace(req.ScheduledTime); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "scheduled_time must be RFC 3339", http.StatusBadRequest)
			return
		}
		utc := t.UTC()
		scheduled = &utc
	}
	var venueID *string
	if v := strings.TrimSpace(req.VenueID); v != "" {
		venueID = &v
	}

	inv, err := h.svc.CreateInvite(r.Context(), inviterID, req.InviteeID, venueID, scheduled)
	if err != nil {
		h.writeEscrowError(w, "invite create", err)
		return
	}

	writeJSON(w, http.StatusCreated, inviteJSON(inv))
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

func (h *Handler) decodeTransition(w http.ResponseWriter, r *http.Request) (string, string, string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return "", "", "", false
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return "", "", "", false
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return "", "", "", false
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return "", "", "", false
	}
	return userID, req.BookingID, req.Reason, true
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, bookingID, _, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	inv, code, err := h.svc.Accept(r.Context(), bookingID, userID)
	if err != nil {
		h.writeEscrowError(w, "invite accept", err)
		return
	}

	resp := inviteJSON(inv)
	resp["promo_code"] = code
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, bookingID, reason, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Decline(r.Context(), bookingID, userID, reason)
	if err != nil {
		h.writeEscrowError(w, "invite decline", err)
		return
	}
	writeJSON(w, http.StatusOK, inviteJSON(inv))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, bookingID, reason, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	inv, refund, message, err := h.svc.Cancel(r.Context(), bookingID, userID, reason)
	if err != nil {
		h.writeEscrowError(w, "invite cancel", err)
		return
	}

	resp := inviteJSON(inv)
	resp["refund_pence"] = refund
	resp["refund_message"] = message
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, bookingID, _, ok := h.decodeTransition(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Complete(r.Context(), bookingID, userID)
	if err != nil {
		h.writeEscrowError(w, "invite complete", err)
		return
	}
	writeJSON(w, http.StatusOK, inviteJSON(inv))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	invites, err := h.invites.ListForUser(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error("invite list failed", "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(invites))
	for _, inv := range invites {
		out = append(out, inviteJSON(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

func inviteJSON(inv model.Invite) map[string]any {
	resp := map[string]any{
		"id":            inv.ID,
		"inviter_id":    inv.InviterID,
		"invitee_id":    inv.InviteeID,
		"status":        inv.Status,
		"inviter_paid":  inv.InviterPaid,
		"invitee_paid":  inv.InviteePaid,
		"deposit_pence": inv.DepositPence,
	}
	if inv.VenueID != nil {
		resp["venue_id"] = *inv.VenueID
	}
	if inv.ScheduledTime != nil {
		resp["scheduled_time"] = inv.ScheduledTime.UTC().Format(time.RFC3339)
	}
	if inv.DeclineReason != "" {
		resp["reason"] = inv.DeclineReason
	}
	return resp
}
