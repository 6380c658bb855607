package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/social-service/internal/storage"
)

type Handler struct {
	repo *storage.Repository
}

func New(repo *storage.Repository) *Handler {
	return &Handler{repo: repo}
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func connectionJSON(c storage.Connection, viewer string) map[string]any {
	other := c.UserA
	if other == viewer {
		other = c.UserB
	}
	return map[string]any{
		"user_id":      other,
		"status":       c.Status,
		"requested_by": c.RequestedBy,
		"created_at":   c.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Connections dispatches on method for /api/v1/connections.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.request(w, r)
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	caller := userIDFromHeader(r)
	if caller == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.UserID == caller {
		http.Error(w, "cannot connect with yourself", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Request(r.Context(), caller, req.UserID)
	if err != nil {
		http.Error(w, "failed to create connection request", http.StatusInternalServerError)
		return
	}
	if !created {
		http.Error(w, "connection already exists", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_id": req.UserID,
		"status":  "pending",
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := userIDFromHeader(r)
	if caller == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", "pending", "accepted", "declined":
	default:
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	connections, err := h.repo.ListForUser(r.Context(), caller, status, 100)
	if err != nil {
		http.Error(w, "failed to list connections", http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(connections))
	for _, c := range connections {
		out = append(out, connectionJSON(c, caller))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"connections": out})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := userIDFromHeader(r)
	if caller == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Remove(r.Context(), caller, userID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "connection not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to remove connection", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller := userIDFromHeader(r)
	if caller == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	var status string
	switch req.Action {
	case "accept":
		status = "accepted"
	case "decline":
		status = "declined"
	default:
		http.Error(w, "action must be accept or decline", http.StatusBadRequest)
		return
	}

	c, err := h.repo.Respond(r.Context(), caller, req.UserID, status)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "no pending request to respond to", http.StatusConflict)
			return
		}
		http.Error(w, "failed to respond to connection request", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(connectionJSON(c, caller))
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	caller := userIDFromHeader(r)
	if caller == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	connected, err := h.repo.Connected(r.Context(), caller, userID)
	if err != nil {
		http.Error(w, "failed to check connection", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"connected": connected})
}
