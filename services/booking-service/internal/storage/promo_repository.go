package storage

import (
	"context"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type PromoRepository struct {
	pool *db.Pool
}

func NewPromoRepository(pool *db.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

func (r *PromoRepository) Insert(ctx context.Context, tx pgx.Tx, p model.PromoCode) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO promo_codes (code, amount_pence, booking_id, created_for_user_id, valid_until)
		VALUES ($1, $2, $3, $4, $5)
	`, p.Code, p.AmountPence, p.BookingID, p.CreatedForUserID, p.ValidUntil)
	return err
}

// GetUnusedForUpdate locks the promo row matching an unused code
// issued to the given user. pgx.ErrNoRows covers every "invalid or
// already used" case in one lookup.
func (r *PromoRepository) GetUnusedForUpdate(ctx context.Context, tx pgx.Tx, code, userID string) (model.PromoCode, error) {
	var p model.PromoCode
	err := tx.QueryRow(ctx, `
		SELECT id::text, code, amount_pence, booking_id::text, created_for_user_id::text, valid_until, times_used
		FROM promo_codes
		WHERE code = $1 AND created_for_user_id = $2 AND used_by_user_id IS NULL
		FOR UPDATE
	`, code, userID).Scan(&p.ID, &p.Code, &p.AmountPence, &p.BookingID, &p.CreatedForUserID, &p.ValidUntil, &p.TimesUsed)
	if err != nil {
		return model.PromoCode{}, err
	}
	return p, nil
}

func (r *PromoRepository) MarkUsed(ctx context.Context, tx pgx.Tx, promoID, userID string, usedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE promo_codes
		SET used_by_user_id = $2, used_at = $3, times_used = times_used + 1
		WHERE id = $1
	`, promoID, userID, usedAt)
	return err
}
