package storage

import (
	"context"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct {
	pool *db.Pool
}

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Insert(ctx context.Context, tx pgx.Tx, p model.Payment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_payments (booking_id, user_id, amount_pence, hold_until)
		VALUES ($1, $2, $3, $4)
	`, p.BookingID, p.UserID, p.AmountPence, p.HoldUntil)
	return err
}

// FetchExpired locks deposit holds whose window has passed and that
// have not been settled yet. SKIP LOCKED lets several release workers
// run side by side.
func (r *PaymentRepository) FetchExpired(ctx context.Context, tx pgx.Tx, limit int) ([]model.Payment, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, booking_id::text, user_id::text, amount_pence, hold_until, created_at
		FROM booking_payments
		WHERE released_at IS NULL AND hold_until <= now()
		ORDER BY hold_until
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.UserID, &p.AmountPence, &p.HoldUntil, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return payments, nil
}

// MarkReleased settles holds so neither the worker nor a later
// cancellation touches them again.
func (r *PaymentRepository) MarkReleased(ctx context.Context, tx pgx.Tx, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE booking_payments
		SET released_at = $2
		WHERE id = ANY($1)
	`, ids, at)
	return err
}

// MarkReleasedForBooking settles every open hold on a booking (used by
// decline, cancel and complete so the expiry worker skips them).
func (r *PaymentRepository) MarkReleasedForBooking(ctx context.Context, tx pgx.Tx, bookingID string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_payments
		SET released_at = $2
		WHERE booking_id = $1 AND released_at IS NULL
	`, bookingID, at)
	return err
}
