package social

import (
	"context"

	"github.com/abidoyedimeji-cell/dana/libs/db"
)

// Checker answers whether two users are connected. Meeting requests
// may only be sent between connected users.
type Checker interface {
	Connected(ctx context.Context, userA, userB string) (bool, error)
}

// dbChecker reads the connections table directly (the default: all
// services share one database).
type dbChecker struct {
	pool *db.Pool
}

func NewDBChecker(pool *db.Pool) Checker {
	return &dbChecker{pool: pool}
}

func (c *dbChecker) Connected(ctx context.Context, userA, userB string) (bool, error) {
	var connected bool
	err := c.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM connections
			WHERE status = 'accepted'
				AND ((user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1))
		)
	`, userA, userB).Scan(&connected)
	if err != nil {
		return false, err
	}
	return connected, nil
}
