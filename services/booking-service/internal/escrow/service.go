package escrow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/promo"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

const (
	topicInviteCreated   = "booking.invite.created.v1"
	topicInviteAccepted  = "booking.invite.accepted.v1"
	topicInviteDeclined  = "booking.invite.declined.v1"
	topicInviteCancelled = "booking.invite.cancelled.v1"
)

// Sentinel errors; handlers map them to HTTP statuses and surface the
// message text directly.
var (
	ErrNotFound            = errors.New("Booking not found")
	ErrUnauthorized        = errors.New("Unauthorized")
	ErrInsufficientBalance = errors.New("Insufficient wallet balance")
	ErrInviterUnpaid       = errors.New("inviter deposit has not been paid")
	ErrInvalidTransition   = errors.New("booking does not allow this transition")
	ErrNotYetStarted       = errors.New("booking has not happened yet")
	ErrNoScheduledTime     = errors.New("booking has no scheduled time")
	ErrInvalidPromo        = errors.New("Invalid or already used promo code")
	ErrPromoExpired        = errors.New("Promo code has expired")
)

// Storage seams for the state machine. The concrete repositories in
// internal/storage satisfy them; tests substitute in-memory fakes so
// the transition and conservation rules run without a database.
type InviteStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, inv *model.Invite) (string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, inviteID string) (model.Invite, error)
	MarkAccepted(ctx context.Context, tx pgx.Tx, inviteID string) error
	MarkDeclined(ctx context.Context, tx pgx.Tx, inviteID, reason string) error
	MarkCancelled(ctx context.Context, tx pgx.Tx, inviteID, reason string) error
	MarkCompleted(ctx context.Context, tx pgx.Tx, inviteID string) error
}

type WalletStore interface {
	Hold(ctx context.Context, tx pgx.Tx, userID string, amount int64) (bool, error)
	ReleaseHold(ctx context.Context, tx pgx.Tx, userID string, amount int64) error
	ForfeitHold(ctx context.Context, tx pgx.Tx, userID string, amount int64) error
	Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error
	RecordTransaction(ctx context.Context, tx pgx.Tx, wt storage.WalletTransaction) error
}

type PromoStore interface {
	Insert(ctx context.Context, tx pgx.Tx, p model.PromoCode) error
	GetUnusedForUpdate(ctx context.Context, tx pgx.Tx, code, userID string) (model.PromoCode, error)
	MarkUsed(ctx context.Context, tx pgx.Tx, promoID, userID string, usedAt time.Time) error
}

type PaymentStore interface {
	Insert(ctx context.Context, tx pgx.Tx, p model.Payment) error
	MarkReleasedForBooking(ctx context.Context, tx pgx.Tx, bookingID string, at time.Time) error
}

type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

var (
	_ InviteStore  = (*storage.InviteRepository)(nil)
	_ WalletStore  = (*storage.WalletRepository)(nil)
	_ PromoStore   = (*storage.PromoRepository)(nil)
	_ PaymentStore = (*storage.PaymentRepository)(nil)
	_ OutboxStore  = (*outbox.Repository)(nil)
)

// Service is the booking escrow state machine. Every operation runs as
// one transaction: either all of its wallet, invite, payment and
// outbox writes land, or none do.
type Service struct {
	invites  InviteStore
	wallets  WalletStore
	promos   PromoStore
	payments PaymentStore
	outbox   OutboxStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	invites InviteStore,
	wallets WalletStore,
	promos PromoStore,
	payments PaymentStore,
	ob OutboxStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		invites:  invites,
		wallets:  wallets,
		promos:   promos,
		payments: payments,
		outbox:   ob,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type inviteEvent struct {
	BookingID     string            `json:"booking_id"`
	InviterID     string            `json:"inviter_id"`
	InviteeID     string            `json:"invitee_id"`
	VenueID       string            `json:"venue_id,omitempty"`
	ScheduledTime string            `json:"scheduled_time,omitempty"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	RefundPence   int64             `json:"refund_pence,omitempty"`
	RefundMessage string            `json:"refund_message,omitempty"`
	PromoCodes    map[string]string `json:"promo_codes,omitempty"`
}

func (s *Service) insertEvent(ctx context.Context, tx pgx.Tx, topic string, inv model.Invite, mutate func(*inviteEvent)) error {
	evt := inviteEvent{
		BookingID: inv.ID,
		InviterID: inv.InviterID,
		InviteeID: inv.InviteeID,
		Status:    inv.Status,
	}
	if inv.VenueID != nil {
		evt.VenueID = *inv.VenueID
	}
	if inv.ScheduledTime != nil {
		evt.ScheduledTime = inv.ScheduledTime.UTC().Format(time.RFC3339)
	}
	if mutate != nil {
		mutate(&evt)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "date_invite",
		AggregateID:   inv.ID,
		EventType:     topic,
		Payload:       payload,
	})
}

// CreateInvite places the inviter's deposit in escrow and records the
// invite. The invite is only visible once the deposit hold succeeded.
func (s *Service) CreateInvite(ctx context.Context, inviterID, inviteeID string, venueID *string, scheduled *time.Time) (model.Invite, error) {
	inv := model.Invite{
		InviterID:     inviterID,
		InviteeID:     inviteeID,
		VenueID:       venueID,
		ScheduledTime: scheduled,
		Status:        model.InvitePending,
		InviterPaid:   true,
		DepositPence:  model.DepositPence,
	}

	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return model.Invite{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ok, err := s.wallets.Hold(ctx, tx, inviterID, model.DepositPence)
	if err != nil {
		return model.Invite{}, err
	}
	if !ok {
		return model.Invite{}, ErrInsufficientBalance
	}

	id, err := s.invites.Create(ctx, tx, &inv)
	if err != nil {
		return model.Invite{}, err
	}
	inv.ID = id
	now := s.now()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := s.payments.Insert(ctx, tx, model.Payment{
		BookingID:   id,
		UserID:      inviterID,
		AmountPence: model.DepositPence,
		HoldUntil:   now.Add(model.DepositHoldWindow),
	}); err != nil {
		return model.Invite{}, err
	}
	if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
		UserID:      inviterID,
		AmountPence: -model.DepositPence,
		Kind:        "deposit_hold",
		BookingID:   id,
	}); err != nil {
		return model.Invite{}, err
	}
	if err := s.insertEvent(ctx, tx, topicInviteCreated, inv, nil); err != nil {
		return model.Invite{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Invite{}, err
	}
	return inv, nil
}

// Accept confirms the date: the invitee's deposit joins the inviter's
// in escrow and one shared promo code is issued to each party.
func (s *Service) Accept(ctx context.Context, inviteID, callerID string) (model.Invite, string, error) {
	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return model.Invite{}, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := s.invites.GetForUpdate(ctx, tx, inviteID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Invite{}, "", ErrNotFound
		}
		return model.Invite{}, "", err
	}
	if inv.InviteeID != callerID {
		return model.Invite{}, "", ErrUnauthorized
	}
	if inv.Status != model.InvitePending {
		return model.Invite{}, "", ErrInvalidTransition
	}
	if !inv.InviterPaid {
		return model.Invite{}, "", ErrInviterUnpaid
	}

	ok, err := s.wallets.Hold(ctx, tx, callerID, model.DepositPence)
	if err != nil {
		return model.Invite{}, "", err
	}
	if !ok {
		return model.Invite{}, "", ErrInsufficientBalance
	}

	now := s.now()
	if err := s.payments.Insert(ctx, tx, model.Payment{
		BookingID:   inv.ID,
		UserID:      callerID,
		AmountPence: model.DepositPence,
		HoldUntil:   now.Add(model.DepositHoldWindow),
	}); err != nil {
		return model.Invite{}, "", err
	}
	if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
		UserID:      callerID,
		AmountPence: -model.DepositPence,
		Kind:        "deposit_hold",
		BookingID:   inv.ID,
	}); err != nil {
		return model.Invite{}, "", err
	}
	if err := s.invites.MarkAccepted(ctx, tx, inv.ID); err != nil {
		return model.Invite{}, "", err
	}
	inv.Status = model.InviteAccepted
	inv.InviteePaid = true

	// Both parties receive the same code string; a row per recipient
	// keeps it single-use for each.
	code := promo.NewCode()
	validUntil := now.Add(model.PromoValidity)
	for _, userID := range []string{inv.InviterID, inv.InviteeID} {
		if err := s.promos.Insert(ctx, tx, model.PromoCode{
			Code:             code,
			AmountPence:      model.PromoPence,
			BookingID:        inv.ID,
			CreatedForUserID: userID,
			ValidUntil:       validUntil,
		}); err != nil {
			return model.Invite{}, "", err
		}
	}

	err = s.insertEvent(ctx, tx, topicInviteAccepted, inv, func(evt *inviteEvent) {
		evt.PromoCodes = map[string]string{
			inv.InviterID: code,
			inv.InviteeID: code,
		}
	})
	if err != nil {
		return model.Invite{}, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Invite{}, "", err
	}
	return inv, code, nil
}

// Decline refuses a pending invite and returns the inviter's deposit.
func (s *Service) Decline(ctx context.Context, inviteID, callerID, reason string) (model.Invite, error) {
	reason = sanitizeReason(reason)

	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return model.Invite{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := s.invites.GetForUpdate(ctx, tx, inviteID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Invite{}, ErrNotFound
		}
		return model.Invite{}, err
	}
	if inv.InviteeID != callerID {
		return model.Invite{}, ErrUnauthorized
	}
	if inv.Status != model.InvitePending {
		return model.Invite{}, ErrInvalidTransition
	}

	if err := s.invites.MarkDeclined(ctx, tx, inv.ID, reason); err != nil {
		return model.Invite{}, err
	}
	inv.Status = model.InviteDeclined
	inv.DeclineReason = reason

	if inv.InviterPaid {
		if err := s.wallets.ReleaseHold(ctx, tx, inv.InviterID, model.DepositPence); err != nil {
			return model.Invite{}, err
		}
		if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
			UserID:      inv.InviterID,
			AmountPence: model.DepositPence,
			Kind:        "deposit_refund",
			BookingID:   inv.ID,
			Note:        "invite declined",
		}); err != nil {
			return model.Invite{}, err
		}
	}
	if err := s.payments.MarkReleasedForBooking(ctx, tx, inv.ID, s.now()); err != nil {
		return model.Invite{}, err
	}

	err = s.insertEvent(ctx, tx, topicInviteDeclined, inv, func(evt *inviteEvent) {
		evt.Reason = reason
	})
	if err != nil {
		return model.Invite{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Invite{}, err
	}
	return inv, nil
}

// Cancel ends a pending or accepted booking with a notice-tiered
// refund. The refund total splits evenly, but only parties whose
// deposit is actually in escrow are credited; the unrefunded remainder
// of each escrowed deposit is forfeited.
func (s *Service) Cancel(ctx context.Context, inviteID, callerID, reason string) (model.Invite, int64, string, error) {
	reason = sanitizeReason(reason)

	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return model.Invite{}, 0, "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := s.invites.GetForUpdate(ctx, tx, inviteID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Invite{}, 0, "", ErrNotFound
		}
		return model.Invite{}, 0, "", err
	}
	if inv.InviterID != callerID && inv.InviteeID != callerID {
		return model.Invite{}, 0, "", ErrUnauthorized
	}
	if inv.Status != model.InvitePending && inv.Status != model.InviteAccepted {
		return model.Invite{}, 0, "", ErrInvalidTransition
	}
	if inv.ScheduledTime == nil {
		return model.Invite{}, 0, "", ErrNoScheduledTime
	}

	now := s.now()
	refund, message := RefundForNotice(*inv.ScheduledTime, now)

	paidParties := make(map[string]bool, 2)
	if inv.InviterPaid {
		paidParties[inv.InviterID] = true
	}
	if inv.InviteePaid {
		paidParties[inv.InviteeID] = true
	}

	// Each escrowed deposit is fully settled here: the refund share goes
	// back to the balance and whatever remains is forfeited, so nothing
	// lingers in held_balance once the holds are marked released.
	share := refund / 2
	for userID := range paidParties {
		if share > 0 {
			if err := s.wallets.ReleaseHold(ctx, tx, userID, share); err != nil {
				return model.Invite{}, 0, "", err
			}
			if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
				UserID:      userID,
				AmountPence: share,
				Kind:        "cancellation_refund",
				BookingID:   inv.ID,
				Note:        message,
			}); err != nil {
				return model.Invite{}, 0, "", err
			}
		}
		if forfeit := model.DepositPence - share; forfeit > 0 {
			if err := s.wallets.ForfeitHold(ctx, tx, userID, forfeit); err != nil {
				return model.Invite{}, 0, "", err
			}
			if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
				UserID:      userID,
				AmountPence: 0,
				Kind:        "deposit_forfeit",
				BookingID:   inv.ID,
				Note:        message,
			}); err != nil {
				return model.Invite{}, 0, "", err
			}
		}
	}

	if err := s.invites.MarkCancelled(ctx, tx, inv.ID, reason); err != nil {
		return model.Invite{}, 0, "", err
	}
	inv.Status = model.InviteCancelled
	if err := s.payments.MarkReleasedForBooking(ctx, tx, inv.ID, now); err != nil {
		return model.Invite{}, 0, "", err
	}

	err = s.insertEvent(ctx, tx, topicInviteCancelled, inv, func(evt *inviteEvent) {
		evt.Reason = reason
		evt.RefundPence = refund
		evt.RefundMessage = message
	})
	if err != nil {
		return model.Invite{}, 0, "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Invite{}, 0, "", err
	}
	return inv, refund, message, nil
}

// Complete closes out an accepted booking and returns both deposits.
func (s *Service) Complete(ctx context.Context, inviteID, callerID string) (model.Invite, error) {
	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return model.Invite{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := s.invites.GetForUpdate(ctx, tx, inviteID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Invite{}, ErrNotFound
		}
		return model.Invite{}, err
	}
	if inv.InviterID != callerID && inv.InviteeID != callerID {
		return model.Invite{}, ErrUnauthorized
	}
	if inv.Status != model.InviteAccepted {
		return model.Invite{}, ErrInvalidTransition
	}
	if inv.ScheduledTime != nil && s.now().Before(*inv.ScheduledTime) {
		return model.Invite{}, ErrNotYetStarted
	}

	for _, userID := range []string{inv.InviterID, inv.InviteeID} {
		if err := s.wallets.ReleaseHold(ctx, tx, userID, model.DepositPence); err != nil {
			return model.Invite{}, err
		}
		if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
			UserID:      userID,
			AmountPence: model.DepositPence,
			Kind:        "deposit_release",
			BookingID:   inv.ID,
			Note:        "date completed",
		}); err != nil {
			return model.Invite{}, err
		}
	}

	if err := s.invites.MarkCompleted(ctx, tx, inv.ID); err != nil {
		return model.Invite{}, err
	}
	inv.Status = model.InviteCompleted
	if err := s.payments.MarkReleasedForBooking(ctx, tx, inv.ID, s.now()); err != nil {
		return model.Invite{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Invite{}, err
	}
	return inv, nil
}

// ApplyPromo redeems a promo code for the caller and credits the
// wallet. Each row is single-use for its intended recipient.
func (s *Service) ApplyPromo(ctx context.Context, callerID, rawCode string) (int64, error) {
	code := promo.Normalize(rawCode)
	if code == "" {
		return 0, ErrInvalidPromo
	}

	tx, err := s.invites.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := s.promos.GetUnusedForUpdate(ctx, tx, code, callerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return 0, ErrInvalidPromo
		}
		return 0, err
	}
	now := s.now()
	if now.After(p.ValidUntil) {
		return 0, ErrPromoExpired
	}

	if err := s.wallets.Credit(ctx, tx, callerID, p.AmountPence); err != nil {
		return 0, err
	}
	if err := s.promos.MarkUsed(ctx, tx, p.ID, callerID, now); err != nil {
		return 0, err
	}
	if err := s.wallets.RecordTransaction(ctx, tx, storage.WalletTransaction{
		UserID:      callerID,
		AmountPence: p.AmountPence,
		Kind:        "promo_credit",
		BookingID:   p.BookingID,
		Note:        p.Code,
	}); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return p.AmountPence, nil
}

func sanitizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	reason = strings.ReplaceAll(reason, "\n", " ")
	reason = strings.ReplaceAll(reason, "\r", " ")
	if len(reason) > 500 {
		reason = reason[:500]
	}
	return reason
}
