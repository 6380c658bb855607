package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/abidoyedimeji-cell/dana/libs/db"
)

type Notification struct {
	BookingID string
	EventType string
	Channel   string
	Recipient string
	Payload   map[string]any
	Status    string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, event_type, channel, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.BookingID, n.EventType, n.Channel, n.Recipient, payload, n.Status)
	return err
}

// RecipientFor resolves a user's email and display name; the
// notification payloads only carry user IDs.
func (r *Repository) RecipientFor(ctx context.Context, userID string) (email, displayName string, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT email, COALESCE(display_name, '')
		FROM users
		WHERE id = $1
	`, userID).Scan(&email, &displayName)
	return email, displayName, err
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
