package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/abidoyedimeji-cell/dana/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

type Connection struct {
	UserA       string
	UserB       string
	Status      string
	RequestedBy string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// canonical orders the pair so one row represents the connection
// regardless of who initiated it.
func canonical(userA, userB string) (string, string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

// Request inserts a pending connection. Returns false when a row for
// the pair already exists (pending, accepted, or declined).
func (r *Repository) Request(ctx context.Context, from, to string) (bool, error) {
	a, b := canonical(from, to)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO connections (user_a, user_b, status, requested_by)
		VALUES ($1, $2, 'pending', $3)
	`, a, b, from)
	if err == nil {
		return true, nil
	}
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

func (r *Repository) Get(ctx context.Context, userA, userB string) (Connection, error) {
	a, b := canonical(userA, userB)
	var c Connection
	err := r.pool.QueryRow(ctx, `
		SELECT user_a::text, user_b::text, status, requested_by::text, created_at, updated_at
		FROM connections
		WHERE user_a = $1 AND user_b = $2
	`, a, b).Scan(&c.UserA, &c.UserB, &c.Status, &c.RequestedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Connection{}, err
	}
	return c, nil
}

// Respond flips a pending connection to accepted or declined. Only the
// user who did not send the request may respond.
func (r *Repository) Respond(ctx context.Context, responder, other, status string) (Connection, error) {
	a, b := canonical(responder, other)
	var c Connection
	err := r.pool.QueryRow(ctx, `
		UPDATE connections
		SET status = $4, updated_at = now()
		WHERE user_a = $1 AND user_b = $2
			AND status = 'pending'
			AND requested_by <> $3
		RETURNING user_a::text, user_b::text, status, requested_by::text, created_at, updated_at
	`, a, b, responder, status).Scan(&c.UserA, &c.UserB, &c.Status, &c.RequestedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Connection{}, err
	}
	return c, nil
}

// Remove deletes the connection between two users in any status.
func (r *Repository) Remove(ctx context.Context, userA, userB string) error {
	a, b := canonical(userA, userB)
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM connections
		WHERE user_a = $1 AND user_b = $2
	`, a, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) ListForUser(ctx context.Context, userID string, status string, limit int) ([]Connection, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_a::text, user_b::text, status, requested_by::text, created_at, updated_at
		FROM connections
		WHERE (user_a = $1 OR user_b = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`, userID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		if err := rows.Scan(&c.UserA, &c.UserB, &c.Status, &c.RequestedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) Connected(ctx context.Context, userA, userB string) (bool, error) {
	a, b := canonical(userA, userB)
	var connected bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE user_a = $1 AND user_b = $2 AND status = 'accepted'
		)
	`, a, b).Scan(&connected)
	if err != nil {
		return false, err
	}
	return connected, nil
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
