package storage

import (
	"context"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type MeetingRepository struct {
	pool *db.Pool
}

func NewMeetingRepository(pool *db.Pool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

func (r *MeetingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *MeetingRepository) Create(ctx context.Context, tx pgx.Tx, m *model.MeetingRequest) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO meeting_requests
			(sender_id, receiver_id, intent_type, venue_id, proposed_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, m.SenderID, m.ReceiverID, m.IntentType, m.VenueID, m.ProposedTime, m.DurationMinutes, m.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *MeetingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, meetingID string) (model.MeetingRequest, error) {
	var m model.MeetingRequest
	var venueID *string
	var proposed *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id::text, sender_id::text, receiver_id::text, intent_type,
			venue_id::text, proposed_time, duration_minutes, status, created_at, updated_at
		FROM meeting_requests
		WHERE id = $1
		FOR UPDATE
	`, meetingID).Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.IntentType,
		&venueID, &proposed, &m.DurationMinutes, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return model.MeetingRequest{}, err
	}
	m.VenueID = venueID
	m.ProposedTime = proposed
	return m, nil
}

func (r *MeetingRepository) Transition(ctx context.Context, tx pgx.Tx, meetingID, status string) error {
	_, err := tx.Exec(ctx, `
		UPDATE meeting_requests
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, meetingID, status)
	return err
}

func (r *MeetingRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.MeetingRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, sender_id::text, receiver_id::text, intent_type,
			venue_id::text, proposed_time, duration_minutes, status, created_at, updated_at
		FROM meeting_requests
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []model.MeetingRequest
	for rows.Next() {
		var m model.MeetingRequest
		var venueID *string
		var proposed *time.Time
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.IntentType,
			&venueID, &proposed, &m.DurationMinutes, &m.Status, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.VenueID = venueID
		m.ProposedTime = proposed
		meetings = append(meetings, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return meetings, nil
}
