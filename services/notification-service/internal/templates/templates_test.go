package templates

import (
	"strings"
	"testing"
)

func TestInviteConfirmed_IncludesPromoCode(t *testing.T) {
	_, body := InviteConfirmed("Alice", "2026-03-14T19:00:00Z", "DANA-AB12CD34")
	if !strings.Contains(body, "DANA-AB12CD34") {
		t.Fatalf("body must contain the promo code: %q", body)
	}
	if !strings.Contains(body, "Alice") {
		t.Fatalf("body must name the other party: %q", body)
	}
}

func TestInviteDeclined_OmitsEmptyReason(t *testing.T) {
	_, body := InviteDeclined("")
	if strings.Contains(body, "Reason:") {
		t.Fatalf("empty reason must not render a Reason line: %q", body)
	}
	_, body = InviteDeclined("double booked")
	if !strings.Contains(body, "Reason: double booked") {
		t.Fatalf("reason missing from body: %q", body)
	}
}

func TestInviteCancelled_CarriesRefundMessage(t *testing.T) {
	_, body := InviteCancelled("Full refund issued (48+ hours notice)")
	if !strings.Contains(body, "Full refund issued (48+ hours notice)") {
		t.Fatalf("refund message missing: %q", body)
	}
}

func TestMeetingRequested_IntentLabels(t *testing.T) {
	_, body := MeetingRequested("", "business_mentorship")
	if !strings.Contains(body, "Someone sent you a mentorship meeting request") {
		t.Fatalf("unexpected body: %q", body)
	}
}
