package storage

import (
	"context"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

// WalletRepository mutates balances with single atomic SQL statements.
// Balance math never happens in application code: concurrent
// transitions can otherwise read stale values and overwrite each
// other's updates.
type WalletRepository struct {
	pool *db.Pool
}

func NewWalletRepository(pool *db.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) Get(ctx context.Context, userID string) (model.Wallet, error) {
	var w model.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text, balance_pence, held_balance_pence, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.BalancePence, &w.HeldPence, &w.UpdatedAt)
	if err != nil {
		return model.Wallet{}, err
	}
	return w, nil
}

// Hold moves amount from balance into held_balance. It reports false
// when the balance cannot cover the amount; nothing is written then.
func (r *WalletRepository) Hold(ctx context.Context, tx pgx.Tx, userID string, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance_pence = balance_pence - $2,
			held_balance_pence = held_balance_pence + $2,
			updated_at = now()
		WHERE user_id = $1 AND balance_pence >= $2
	`, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseHold returns amount from held_balance to balance. The held
// side floors at zero so a double release cannot drive it negative.
func (r *WalletRepository) ReleaseHold(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance_pence = balance_pence + $2,
			held_balance_pence = GREATEST(held_balance_pence - $2, 0),
			updated_at = now()
		WHERE user_id = $1
	`, userID, amount)
	return err
}

// ForfeitHold drops amount from held_balance without crediting it
// back. Used when a late cancellation forfeits the deposit.
func (r *WalletRepository) ForfeitHold(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE wallets
		SET held_balance_pence = GREATEST(held_balance_pence - $2, 0),
			updated_at = now()
		WHERE user_id = $1
	`, userID, amount)
	return err
}

// Credit adds amount to balance, creating the wallet row on first use.
func (r *WalletRepository) Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance_pence, held_balance_pence)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE
		SET balance_pence = wallets.balance_pence + EXCLUDED.balance_pence,
			updated_at = now()
	`, userID, amount)
	return err
}

type WalletTransaction struct {
	UserID      string
	AmountPence int64
	Kind        string
	BookingID   string
	Note        string
}

// RecordTransaction appends an audit row. Amounts are signed: debits
// are negative.
func (r *WalletRepository) RecordTransaction(ctx context.Context, tx pgx.Tx, wt WalletTransaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_transactions (user_id, amount_pence, kind, booking_id, note)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, NULLIF($5, ''))
	`, wt.UserID, wt.AmountPence, wt.Kind, wt.BookingID, wt.Note)
	return err
}

type WalletTransactionRecord struct {
	AmountPence int64
	Kind        string
	BookingID   string
	Note        string
	CreatedAt   time.Time
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]WalletTransactionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT amount_pence, kind, COALESCE(booking_id::text, ''), COALESCE(note, ''), created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WalletTransactionRecord
	for rows.Next() {
		var t WalletTransactionRecord
		if err := rows.Scan(&t.AmountPence, &t.Kind, &t.BookingID, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
