package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

// Wallet top-up bounds, in pence.
const (
	topUpMinPence = 500
	topUpMaxPence = 50000
)

func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	wallet, err := h.wallets.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row yet means an untouched wallet.
			writeJSON(w, http.StatusOK, map[string]any{
				"balance_pence":      0,
				"held_balance_pence": 0,
				"transactions":       []any{},
			})
			return
		}
		h.logger.Error("wallet load failed", "err", err)
		http.Error(w, "failed to load wallet", http.StatusInternalServerError)
		return
	}

	transactions, err := h.wallets.ListTransactions(r.Context(), userID, 20)
	if err != nil {
		h.logger.Error("wallet transactions load failed", "err", err)
		http.Error(w, "failed to load wallet", http.StatusInternalServerError)
		return
	}
	txns := make([]map[string]any, 0, len(transactions))
	for _, t := range transactions {
		entry := map[string]any{
			"amount_pence": t.AmountPence,
			"kind":         t.Kind,
			"created_at":   t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.BookingID != "" {
			entry["booking_id"] = t.BookingID
		}
		if t.Note != "" {
			entry["note"] = t.Note
		}
		txns = append(txns, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balance_pence":      wallet.BalancePence,
		"held_balance_pence": wallet.HeldPence,
		"updated_at":         wallet.UpdatedAt.UTC().Format(time.RFC3339),
		"transactions":       txns,
	})
}

type topUpRequest struct {
	AmountPence int64  `json:"amount_pence"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

// TopUp creates a Stripe Checkout session for a wallet top-up. The
// wallet is only credited when the signed webhook confirms payment.
func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if strings.TrimSpace(h.cfg.StripeSecretKey) == "" {
		http.Error(w, "payments not configured", http.StatusServiceUnavailable)
		return
	}

	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AmountPence < topUpMinPence || req.AmountPence > topUpMaxPence {
		http.Error(w, "amount_pence must be between 500 and 50000", http.StatusBadRequest)
		return
	}

	successURL := strings.TrimSpace(req.SuccessURL)
	if successURL == "" {
		successURL = h.cfg.CheckoutSuccessURL
	}
	cancelURL := strings.TrimSpace(req.CancelURL)
	if cancelURL == "" {
		cancelURL = h.cfg.CheckoutCancelURL
	}
	if successURL == "" || cancelURL == "" {
		http.Error(w, "success_url and cancel_url are required (or configure default URLs)", http.StatusBadRequest)
		return
	}

	// Stripe uses a global API key. Keep usage limited to this handler call.
	stripe.Key = h.cfg.StripeSecretKey

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("gbp"),
					UnitAmount: stripe.Int64(req.AmountPence),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Wallet top-up"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id":      userID,
			"amount_pence": strconv.FormatInt(req.AmountPence, 10),
		},
	}
	params.AddExpand("url")
	if idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key")); idemKey != "" {
		params.IdempotencyKey = stripe.String(idemKey)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		h.logger.Error("stripe checkout session create failed", "err", err)
		http.Error(w, "failed to create checkout session", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"url":        sess.URL,
	})
}
