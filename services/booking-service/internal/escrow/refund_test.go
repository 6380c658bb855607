package escrow

import (
	"testing"
	"time"
)

func TestRefundForNotice(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		notice  time.Duration
		amount  int64
		message string
	}{
		{"well over 48h", 72 * time.Hour, 1000, "Full refund issued (48+ hours notice)"},
		{"exactly 48h", 48 * time.Hour, 1000, "Full refund issued (48+ hours notice)"},
		{"just under 48h", 48*time.Hour - 6*time.Minute, 500, "Partial refund issued (24-48 hours notice)"},
		{"exactly 24h", 24 * time.Hour, 500, "Partial refund issued (24-48 hours notice)"},
		{"just under 24h", 24*time.Hour - 6*time.Minute, 0, "No refund (less than 24 hours notice)"},
		{"past booking", -time.Hour, 0, "No refund (less than 24 hours notice)"},
	}
	for _, tc := range cases {
		amount, message := RefundForNotice(now.Add(tc.notice), now)
		if amount != tc.amount {
			t.Fatalf("%s: expected refund %d, got %d", tc.name, tc.amount, amount)
		}
		if message != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, message)
		}
	}
}
