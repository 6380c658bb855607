package escrow

import "time"

// Refund messages are shown to both parties verbatim.
const (
	refundFullMessage    = "Full refund issued (48+ hours notice)"
	refundPartialMessage = "Partial refund issued (24-48 hours notice)"
	refundNoneMessage    = "No refund (less than 24 hours notice)"
)

// RefundForNotice computes the total refund (pence, split evenly
// across both parties) for a cancellation at the given notice period.
// Boundaries are inclusive: exactly 48 hours earns a full refund,
// exactly 24 hours a partial one.
func RefundForNotice(scheduled, now time.Time) (int64, string) {
	notice := scheduled.Sub(now)
	switch {
	case notice >= 48*time.Hour:
		return 1000, refundFullMessage
	case notice >= 24*time.Hour:
		return 500, refundPartialMessage
	default:
		return 0, refundNoneMessage
	}
}
