package model

import "time"

// Invite statuses. Completed, declined and cancelled are terminal.
const (
	InvitePending   = "pending"
	InviteAccepted  = "accepted"
	InviteDeclined  = "declined"
	InviteCancelled = "cancelled"
	InviteCompleted = "completed"
)

// Monetary values are integer pence (GBP).
const (
	DepositPence = 500
	PromoPence   = 1000

	// How long a promo code issued on mutual confirmation stays valid.
	PromoValidity = 30 * time.Minute

	// How long a deposit stays held before the release worker returns
	// it to the wallet.
	DepositHoldWindow = 7 * 24 * time.Hour
)

type Invite struct {
	ID            string
	InviterID     string
	InviteeID     string
	VenueID       *string
	ScheduledTime *time.Time
	Status        string
	InviterPaid   bool
	InviteePaid   bool
	DepositPence  int64
	DeclineReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Wallet struct {
	UserID       string
	BalancePence int64
	HeldPence    int64
	UpdatedAt    time.Time
}

type PromoCode struct {
	ID               string
	Code             string
	AmountPence      int64
	BookingID        string
	CreatedForUserID string
	ValidUntil       time.Time
	UsedByUserID     *string
	UsedAt           *time.Time
	TimesUsed        int
}

// Payment is a deposit hold attached to an invite, released by the
// holds worker once the hold window passes.
type Payment struct {
	ID          int64
	BookingID   string
	UserID      string
	AmountPence int64
	HoldUntil   time.Time
	ReleasedAt  *time.Time
	CreatedAt   time.Time
}
