package escrow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// memTx satisfies pgx.Tx for the in-memory store, which applies writes
// immediately and treats commit and rollback as no-ops.
type memTx struct{}

func (memTx) Begin(context.Context) (pgx.Tx, error) { return memTx{}, nil }
func (memTx) Commit(context.Context) error          { return nil }
func (memTx) Rollback(context.Context) error        { return nil }
func (memTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (memTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (memTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (memTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (memTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (memTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (memTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (memTx) Conn() *pgx.Conn                                         { return nil }

// memStore backs every store seam with maps so the state machine's
// transition and money-conservation rules run without Postgres.
type memStore struct {
	seq      int
	invites  map[string]model.Invite
	wallets  map[string]*model.Wallet
	promos   []model.PromoCode
	payments []model.Payment
	txns     []storage.WalletTransaction
	events   []outbox.Event
}

func newMemStore() *memStore {
	return &memStore{
		invites: map[string]model.Invite{},
		wallets: map[string]*model.Wallet{},
	}
}

func (m *memStore) wallet(userID string) *model.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &model.Wallet{UserID: userID}
		m.wallets[userID] = w
	}
	return w
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) { return memTx{}, nil }

func (m *memStore) Create(_ context.Context, _ pgx.Tx, inv *model.Invite) (string, error) {
	m.seq++
	id := fmt.Sprintf("invite-%d", m.seq)
	stored := *inv
	stored.ID = id
	m.invites[id] = stored
	return id, nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ pgx.Tx, inviteID string) (model.Invite, error) {
	inv, ok := m.invites[inviteID]
	if !ok {
		return model.Invite{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (m *memStore) MarkAccepted(_ context.Context, _ pgx.Tx, inviteID string) error {
	inv := m.invites[inviteID]
	inv.Status = model.InviteAccepted
	inv.InviteePaid = true
	m.invites[inviteID] = inv
	return nil
}

func (m *memStore) MarkDeclined(_ context.Context, _ pgx.Tx, inviteID, reason string) error {
	inv := m.invites[inviteID]
	inv.Status = model.InviteDeclined
	inv.DeclineReason = reason
	m.invites[inviteID] = inv
	return nil
}

func (m *memStore) MarkCancelled(_ context.Context, _ pgx.Tx, inviteID, reason string) error {
	inv := m.invites[inviteID]
	inv.Status = model.InviteCancelled
	inv.DeclineReason = reason
	m.invites[inviteID] = inv
	return nil
}

func (m *memStore) MarkCompleted(_ context.Context, _ pgx.Tx, inviteID string) error {
	inv := m.invites[inviteID]
	inv.Status = model.InviteCompleted
	m.invites[inviteID] = inv
	return nil
}

func (m *memStore) Hold(_ context.Context, _ pgx.Tx, userID string, amount int64) (bool, error) {
	w := m.wallet(userID)
	if w.BalancePence < amount {
		return false, nil
	}
	w.BalancePence -= amount
	w.HeldPence += amount
	return true, nil
}

func (m *memStore) ReleaseHold(_ context.Context, _ pgx.Tx, userID string, amount int64) error {
	w := m.wallet(userID)
	w.BalancePence += amount
	w.HeldPence -= amount
	if w.HeldPence < 0 {
		w.HeldPence = 0
	}
	return nil
}

func (m *memStore) ForfeitHold(_ context.Context, _ pgx.Tx, userID string, amount int64) error {
	w := m.wallet(userID)
	w.HeldPence -= amount
	if w.HeldPence < 0 {
		w.HeldPence = 0
	}
	return nil
}

func (m *memStore) Credit(_ context.Context, _ pgx.Tx, userID string, amount int64) error {
	m.wallet(userID).BalancePence += amount
	return nil
}

func (m *memStore) RecordTransaction(_ context.Context, _ pgx.Tx, wt storage.WalletTransaction) error {
	m.txns = append(m.txns, wt)
	return nil
}

func (m *memStore) Insert(_ context.Context, _ pgx.Tx, p model.PromoCode) error {
	m.seq++
	p.ID = fmt.Sprintf("promo-%d", m.seq)
	m.promos = append(m.promos, p)
	return nil
}

func (m *memStore) GetUnusedForUpdate(_ context.Context, _ pgx.Tx, code, userID string) (model.PromoCode, error) {
	for _, p := range m.promos {
		if p.Code == code && p.CreatedForUserID == userID && p.UsedByUserID == nil {
			return p, nil
		}
	}
	return model.PromoCode{}, pgx.ErrNoRows
}

func (m *memStore) MarkUsed(_ context.Context, _ pgx.Tx, promoID, userID string, usedAt time.Time) error {
	for i := range m.promos {
		if m.promos[i].ID == promoID {
			m.promos[i].UsedByUserID = &userID
			m.promos[i].UsedAt = &usedAt
			m.promos[i].TimesUsed++
		}
	}
	return nil
}

func (m *memStore) InsertPayment(_ context.Context, _ pgx.Tx, p model.Payment) error {
	m.payments = append(m.payments, p)
	return nil
}

func (m *memStore) MarkReleasedForBooking(_ context.Context, _ pgx.Tx, bookingID string, at time.Time) error {
	for i := range m.payments {
		if m.payments[i].BookingID == bookingID && m.payments[i].ReleasedAt == nil {
			released := at
			m.payments[i].ReleasedAt = &released
		}
	}
	return nil
}

func (m *memStore) InsertEvent(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	m.events = append(m.events, evt)
	return nil
}

// paymentStore and outboxStore disambiguate the Insert methods so one
// memStore can back every seam.
type paymentStore struct{ *memStore }

func (s paymentStore) Insert(ctx context.Context, tx pgx.Tx, p model.Payment) error {
	return s.InsertPayment(ctx, tx, p)
}

type outboxStore struct{ *memStore }

func (s outboxStore) Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error {
	return s.InsertEvent(ctx, tx, evt)
}

func newTestService(store *memStore, now time.Time) *Service {
	svc := NewService(store, store, store, paymentStore{store}, outboxStore{store}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc
}

func TestCreateInviteInsufficientBalance(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 400

	_, err := svc.CreateInvite(context.Background(), "alice", "bob", nil, nil)
	if err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(store.invites) != 0 {
		t.Fatalf("no invite should exist after a failed hold, got %d", len(store.invites))
	}
	w := store.wallet("alice")
	if w.BalancePence != 400 || w.HeldPence != 0 {
		t.Fatalf("wallet must be untouched, got balance=%d held=%d", w.BalancePence, w.HeldPence)
	}
}

func TestDeclineReturnsInviterDeposit(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 600
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, nil)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	if w := store.wallet("alice"); w.BalancePence != 100 || w.HeldPence != 500 {
		t.Fatalf("deposit not escrowed, got balance=%d held=%d", w.BalancePence, w.HeldPence)
	}

	declined, err := svc.Decline(ctx, inv.ID, "bob", "busy that week")
	if err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if declined.Status != model.InviteDeclined {
		t.Fatalf("expected declined status, got %q", declined.Status)
	}
	if w := store.wallet("alice"); w.BalancePence != 600 || w.HeldPence != 0 {
		t.Fatalf("deposit not returned, got balance=%d held=%d", w.BalancePence, w.HeldPence)
	}
	if w := store.wallet("bob"); w.BalancePence != 0 || w.HeldPence != 0 {
		t.Fatalf("invitee wallet must be untouched, got balance=%d held=%d", w.BalancePence, w.HeldPence)
	}
	for _, p := range store.payments {
		if p.ReleasedAt == nil {
			t.Fatalf("open hold left after decline: %+v", p)
		}
	}
}

func TestCancelPartialRefundSettlesAllHeldFunds(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 1000
	store.wallet("bob").BalancePence = 1000
	scheduled := now.Add(30 * time.Hour)
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, &scheduled)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	if _, _, err := svc.Accept(ctx, inv.ID, "bob"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	_, refund, message, err := svc.Cancel(ctx, inv.ID, "alice", "plans changed")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if refund != 500 {
		t.Fatalf("expected 500 pence total refund at 30h notice, got %d", refund)
	}
	if message != "Partial refund issued (24-48 hours notice)" {
		t.Fatalf("unexpected refund message %q", message)
	}

	for _, userID := range []string{"alice", "bob"} {
		w := store.wallet(userID)
		if w.BalancePence != 750 {
			t.Fatalf("%s: expected balance 750 after 250 refund, got %d", userID, w.BalancePence)
		}
		if w.HeldPence != 0 {
			t.Fatalf("%s: %d pence stranded in held balance after settlement", userID, w.HeldPence)
		}
	}

	var forfeits int
	for _, wt := range store.txns {
		if wt.Kind == "deposit_forfeit" {
			forfeits++
		}
	}
	if forfeits != 2 {
		t.Fatalf("expected a forfeit audit row per party, got %d", forfeits)
	}
	for _, p := range store.payments {
		if p.ReleasedAt == nil {
			t.Fatalf("open hold left after cancel: %+v", p)
		}
	}
}

func TestCancelNoRefundForfeitsEscrowedDeposits(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 1000
	store.wallet("bob").BalancePence = 1000
	scheduled := now.Add(2 * time.Hour)
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, &scheduled)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	if _, _, err := svc.Accept(ctx, inv.ID, "bob"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	_, refund, _, err := svc.Cancel(ctx, inv.ID, "bob", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if refund != 0 {
		t.Fatalf("expected no refund at 2h notice, got %d", refund)
	}
	for _, userID := range []string{"alice", "bob"} {
		w := store.wallet(userID)
		if w.BalancePence != 500 || w.HeldPence != 0 {
			t.Fatalf("%s: expected forfeited deposit, got balance=%d held=%d", userID, w.BalancePence, w.HeldPence)
		}
	}
}

func TestCompleteReleasesBothDeposits(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 1000
	store.wallet("bob").BalancePence = 1000
	scheduled := now.Add(48 * time.Hour)
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, &scheduled)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	if _, _, err := svc.Accept(ctx, inv.ID, "bob"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if _, err := svc.Complete(ctx, inv.ID, "alice"); err != ErrNotYetStarted {
		t.Fatalf("expected ErrNotYetStarted before the scheduled time, got %v", err)
	}

	svc.now = func() time.Time { return scheduled.Add(time.Hour) }
	if _, err := svc.Complete(ctx, inv.ID, "alice"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	for _, userID := range []string{"alice", "bob"} {
		w := store.wallet(userID)
		if w.BalancePence != 1000 || w.HeldPence != 0 {
			t.Fatalf("%s: expected full deposit back, got balance=%d held=%d", userID, w.BalancePence, w.HeldPence)
		}
	}
}

func TestApplyPromoSingleUsePerRecipient(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 1000
	store.wallet("bob").BalancePence = 1000
	scheduled := now.Add(72 * time.Hour)
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, &scheduled)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	_, code, err := svc.Accept(ctx, inv.ID, "bob")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if code == "" {
		t.Fatal("expected a promo code on mutual confirmation")
	}

	amount, err := svc.ApplyPromo(ctx, "alice", code)
	if err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if amount != 1000 {
		t.Fatalf("expected 1000 pence credit, got %d", amount)
	}
	if w := store.wallet("alice"); w.BalancePence != 1500 {
		t.Fatalf("credit not applied, balance=%d", w.BalancePence)
	}

	if _, err := svc.ApplyPromo(ctx, "alice", code); err != ErrInvalidPromo {
		t.Fatalf("second redemption must fail with ErrInvalidPromo, got %v", err)
	}
	if w := store.wallet("alice"); w.BalancePence != 1500 {
		t.Fatalf("failed redemption must not credit, balance=%d", w.BalancePence)
	}

	// The other party holds an independent row for the same code string.
	if _, err := svc.ApplyPromo(ctx, "bob", code); err != nil {
		t.Fatalf("counterpart redemption failed: %v", err)
	}
	if _, err := svc.ApplyPromo(ctx, "carol", code); err != ErrInvalidPromo {
		t.Fatalf("code must be invalid for outsiders, got %v", err)
	}
}

func TestApplyPromoExpired(t *testing.T) {
	store := newMemStore()
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	store.wallet("alice").BalancePence = 1000
	store.wallet("bob").BalancePence = 1000
	scheduled := now.Add(72 * time.Hour)
	ctx := context.Background()

	inv, err := svc.CreateInvite(ctx, "alice", "bob", nil, &scheduled)
	if err != nil {
		t.Fatalf("CreateInvite failed: %v", err)
	}
	_, code, err := svc.Accept(ctx, inv.ID, "bob")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	svc.now = func() time.Time { return now.Add(31 * time.Minute) }
	if _, err := svc.ApplyPromo(ctx, "alice", code); err != ErrPromoExpired {
		t.Fatalf("expected ErrPromoExpired after the validity window, got %v", err)
	}
}

func TestSanitizeReason(t *testing.T) {
	if got := sanitizeReason("  too\r\nbusy  "); got != "too  busy" {
		t.Fatalf("unexpected sanitized reason: %q", got)
	}
	long := strings.Repeat("x", 600)
	if got := sanitizeReason(long); len(got) != 500 {
		t.Fatalf("expected reason capped at 500, got %d", len(got))
	}
}
