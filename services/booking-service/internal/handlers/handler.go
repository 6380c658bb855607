package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/escrow"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
)

type Config struct {
	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeWebhookTolerance int64
	CheckoutSuccessURL     string
	CheckoutCancelURL      string
}

type Handler struct {
	svc            *escrow.Service
	invites        *storage.InviteRepository
	wallets        *storage.WalletRepository
	providerEvents *storage.ProviderEventRepository
	logger         *slog.Logger
	cfg            Config
}

func New(svc *escrow.Service, invites *storage.InviteRepository, wallets *storage.WalletRepository, providerEvents *storage.ProviderEventRepository, logger *slog.Logger, cfg Config) *Handler {
	return &Handler{
		svc:            svc,
		invites:        invites,
		wallets:        wallets,
		providerEvents: providerEvents,
		logger:         logger,
		cfg:            cfg,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEscrowError maps state machine sentinels onto HTTP statuses,
// surfacing the sentinel text as the response body.
func (h *Handler) writeEscrowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, escrow.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, escrow.ErrInvalidTransition), errors.Is(err, escrow.ErrNotYetStarted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, escrow.ErrInsufficientBalance),
		errors.Is(err, escrow.ErrInviterUnpaid),
		errors.Is(err, escrow.ErrNoScheduledTime),
		errors.Is(err, escrow.ErrInvalidPromo),
		errors.Is(err, escrow.ErrPromoExpired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(op+" failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
