//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/abidoyedimeji-cell/dana/services/social-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *storage.Repository) error {
	return nil
}
