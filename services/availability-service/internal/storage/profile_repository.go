package storage

import (
	"context"
	"errors"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type ProfileRepository struct {
	pool *db.Pool
}

func NewProfileRepository(pool *db.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Get(ctx context.Context, userID string) (model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text, COALESCE(display_name, ''),
			COALESCE(calendar_link_social, ''), COALESCE(calendar_link_business, '')
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.DisplayName, &p.CalendarLinkSocial, &p.CalendarLinkBusiness)
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

func (r *ProfileRepository) UpdateCalendarLinks(ctx context.Context, userID, social, business string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET calendar_link_social = NULLIF($2, ''),
			calendar_link_business = NULLIF($3, ''),
			updated_at = now()
		WHERE user_id = $1
	`, userID, social, business)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
