//go:build !protogen

package social

import (
	"log/slog"

	"github.com/abidoyedimeji-cell/dana/libs/db"
)

func NewChecker(_ *slog.Logger, pool *db.Pool, _ string) Checker {
	return NewDBChecker(pool)
}
