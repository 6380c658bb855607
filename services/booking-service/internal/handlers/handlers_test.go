package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testHandler() *Handler {
	return New(nil, nil, nil, nil, testLogger(), Config{})
}

func TestCreate_Validation(t *testing.T) {
	h := testHandler()

	cases := []struct {
		name string
		body string
	}{
		{"bad json", "{"},
		{"missing invitee", `{}`},
		{"self invite", `{"invitee_id":"u1"}`},
		{"bad time", `{"invitee_id":"u2","scheduled_time":"friday"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(tc.body))
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		h.Create(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rw.Code)
		}
	}
}

func TestCreate_RequiresAuth(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"invitee_id":"u2"}`))
	rw := httptest.NewRecorder()
	h.Create(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", rw.Code)
	}
}

func TestTransitions_RequireBookingID(t *testing.T) {
	h := testHandler()
	for name, fn := range map[string]http.HandlerFunc{
		"accept":   h.Accept,
		"decline":  h.Decline,
		"cancel":   h.Cancel,
		"complete": h.Complete,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/x", strings.NewReader(`{}`))
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		fn(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 for missing booking_id, got %d", name, rw.Code)
		}
	}
}

func TestTopUp_Bounds(t *testing.T) {
	h := New(nil, nil, nil, nil, testLogger(), Config{StripeSecretKey: "sk_test_x"})

	for _, body := range []string{
		`{"amount_pence":499}`,
		`{"amount_pence":50001}`,
		`{"amount_pence":0}`,
		`{"amount_pence":-500}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/topup", strings.NewReader(body))
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		h.TopUp(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rw.Code)
		}
	}
}

func TestTopUp_NotConfigured(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/topup", strings.NewReader(`{"amount_pence":1000}`))
	req.Header.Set("X-User-Id", "u1")
	rw := httptest.NewRecorder()
	h.TopUp(rw, req)
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without stripe key, got %d", rw.Code)
	}
}

func TestStripeWebhook_RequiresSignature(t *testing.T) {
	h := New(nil, nil, nil, nil, testLogger(), Config{StripeWebhookSecret: "whsec_test"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/stripe/webhook", strings.NewReader(`{}`))
	rw := httptest.NewRecorder()
	h.StripeWebhook(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Stripe-Signature, got %d", rw.Code)
	}
}
