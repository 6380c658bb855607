package storage

import (
	"context"
	"errors"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type InviteRepository struct {
	pool *db.Pool
}

func NewInviteRepository(pool *db.Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

func (r *InviteRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *InviteRepository) Create(ctx context.Context, tx pgx.Tx, inv *model.Invite) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO date_invites
			(inviter_id, invitee_id, venue_id, scheduled_time, status, inviter_paid, invitee_paid, deposit_pence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, inv.InviterID, inv.InviteeID, inv.VenueID, inv.ScheduledTime, inv.Status, inv.InviterPaid, inv.InviteePaid, inv.DepositPence).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const inviteColumns = `
	id::text, inviter_id::text, invitee_id::text, venue_id::text, scheduled_time,
	status, inviter_paid, invitee_paid, deposit_pence, COALESCE(decline_reason, ''),
	created_at, updated_at`

func scanInvite(row pgx.Row) (model.Invite, error) {
	var inv model.Invite
	var venueID *string
	var scheduled *time.Time
	err := row.Scan(
		&inv.ID, &inv.InviterID, &inv.InviteeID, &venueID, &scheduled,
		&inv.Status, &inv.InviterPaid, &inv.InviteePaid, &inv.DepositPence, &inv.DeclineReason,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return model.Invite{}, err
	}
	inv.VenueID = venueID
	inv.ScheduledTime = scheduled
	return inv, nil
}

// GetForUpdate locks the invite row for the duration of the
// transaction so concurrent transitions serialize.
func (r *InviteRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, inviteID string) (model.Invite, error) {
	return scanInvite(tx.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM date_invites
		WHERE id = $1
		FOR UPDATE
	`, inviteID))
}

func (r *InviteRepository) Get(ctx context.Context, inviteID string) (model.Invite, error) {
	return scanInvite(r.pool.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM date_invites
		WHERE id = $1
	`, inviteID))
}

func (r *InviteRepository) MarkAccepted(ctx context.Context, tx pgx.Tx, inviteID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE date_invites
		SET status = 'accepted', invitee_paid = TRUE, updated_at = now()
		WHERE id = $1
	`, inviteID)
	return err
}

func (r *InviteRepository) MarkDeclined(ctx context.Context, tx pgx.Tx, inviteID, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE date_invites
		SET status = 'declined', decline_reason = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`, inviteID, reason)
	return err
}

func (r *InviteRepository) MarkCancelled(ctx context.Context, tx pgx.Tx, inviteID, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE date_invites
		SET status = 'cancelled', decline_reason = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`, inviteID, reason)
	return err
}

func (r *InviteRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, inviteID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE date_invites
		SET status = 'completed', updated_at = now()
		WHERE id = $1
	`, inviteID)
	return err
}

func (r *InviteRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Invite, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM date_invites
		WHERE inviter_id = $1 OR invitee_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []model.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return invites, nil
}

// VenueInfo resolves a venue's display fields for calendar export.
func (r *InviteRepository) VenueInfo(ctx context.Context, venueID string) (name, address string, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT name, COALESCE(address, '')
		FROM venues
		WHERE id = $1
	`, venueID).Scan(&name, &address)
	return name, address, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
