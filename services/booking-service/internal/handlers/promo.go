package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type applyPromoRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := h.svc.ApplyPromo(r.Context(), userID, req.Code)
	if err != nil {
		h.writeEscrowError(w, "promo apply", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"credited_pence": amount,
	})
}
