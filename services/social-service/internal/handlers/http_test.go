package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConnections_RequiresAuth(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/connections", strings.NewReader(`{"user_id":"u2"}`))
	rw := httptest.NewRecorder()
	h.Connections(rw, req)
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rw.Code)
	}
}

func TestConnections_Validation(t *testing.T) {
	h := New(nil)
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing user_id", `{}`},
		{"self connection", `{"user_id":"u1"}`},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/connections", strings.NewReader(tc.body))
		req.Header.Set("X-User-Id", "u1")
		rw := httptest.NewRecorder()
		h.Connections(rw, req)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rw.Code)
		}
	}
}

func TestRespond_InvalidAction(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/connections/respond", strings.NewReader(`{"user_id":"u2","action":"maybe"}`))
	req.Header.Set("X-User-Id", "u1")
	rw := httptest.NewRecorder()
	h.Respond(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestConnections_MethodNotAllowed(t *testing.T) {
	h := New(nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/connections", nil)
	req.Header.Set("X-User-Id", "u1")
	rw := httptest.NewRecorder()
	h.Connections(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}
