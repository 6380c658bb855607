package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/jackc/pgx/v5"
)

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

type ProviderEventRepository struct {
	pool *db.Pool
}

func NewProviderEventRepository(pool *db.Pool) *ProviderEventRepository {
	return &ProviderEventRepository{pool: pool}
}

// Insert records an inbound payment-provider event, rejecting replays
// via the (provider, provider_event_id) unique key.
func (r *ProviderEventRepository) Insert(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		// Webhook bodies must be well-formed JSON.
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}
