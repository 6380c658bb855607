package storage

import (
	"context"
	"errors"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type VenueRepository struct {
	pool *db.Pool
}

func NewVenueRepository(pool *db.Pool) *VenueRepository {
	return &VenueRepository{pool: pool}
}

func (r *VenueRepository) Get(ctx context.Context, venueID string) (model.Venue, error) {
	var v model.Venue
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(address, '')
		FROM venues
		WHERE id = $1
	`, venueID).Scan(&v.ID, &v.Name, &v.Address)
	if err != nil {
		return model.Venue{}, err
	}
	return v, nil
}

// HoursFor returns the venue's operating hours for a day of the week
// (0 = Sunday), or nil when the venue has no hours row for that day.
func (r *VenueRepository) HoursFor(ctx context.Context, venueID string, dayOfWeek int) (*availability.VenueHours, error) {
	var h availability.VenueHours
	err := r.pool.QueryRow(ctx, `
		SELECT day_of_week, EXTRACT(HOUR FROM opens_at)::int, EXTRACT(HOUR FROM closes_at)::int
		FROM venue_hours
		WHERE venue_id = $1 AND day_of_week = $2
	`, venueID, dayOfWeek).Scan(&h.DayOfWeek, &h.OpensAtHour, &h.ClosesAtHour)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *VenueRepository) Create(ctx context.Context, name, address string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO venues (id, name, address)
		VALUES ($1, $2, $3)
	`, id, name, address)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *VenueRepository) UpsertHours(ctx context.Context, venueID string, dayOfWeek, opensAtHour, closesAtHour int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO venue_hours (venue_id, day_of_week, opens_at, closes_at)
		VALUES ($1, $2, make_time($3, 0, 0), make_time($4, 0, 0))
		ON CONFLICT (venue_id, day_of_week) DO UPDATE
		SET opens_at = EXCLUDED.opens_at,
			closes_at = EXCLUDED.closes_at
	`, venueID, dayOfWeek, opensAtHour, closesAtHour)
	return err
}

func (r *VenueRepository) List(ctx context.Context, limit int) ([]model.Venue, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, COALESCE(address, '')
		FROM venues
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Address); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return venues, nil
}
