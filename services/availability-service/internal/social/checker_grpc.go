//go:build protogen

package social

import (
	"context"
	"log/slog"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/libs/grpcx"
	socialv1 "github.com/abidoyedimeji-cell/dana/protos/gen/social/v1"
)

type grpcChecker struct {
	client socialv1.SocialGraphServiceClient
}

// NewChecker dials the social-graph service when an address is
// configured; otherwise it falls back to the shared-database checker.
func NewChecker(logger *slog.Logger, pool *db.Pool, addr string) Checker {
	if addr == "" {
		return NewDBChecker(pool)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		logger.Warn("grpc social-graph checker unavailable, using database fallback", "err", err)
		return NewDBChecker(pool)
	}

	logger.Info("grpc social-graph checker enabled", "addr", addr)
	return &grpcChecker{client: socialv1.NewSocialGraphServiceClient(conn)}
}

func (c *grpcChecker) Connected(ctx context.Context, userA, userB string) (bool, error) {
	resp, err := c.client.AreUsersConnected(ctx, &socialv1.AreUsersConnectedRequest{
		UserA: userA,
		UserB: userB,
	})
	if err != nil {
		return false, err
	}
	return resp.Connected, nil
}
