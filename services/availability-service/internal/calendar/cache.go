package calendar

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL Redis cache for provider availability
// responses. It fails open: a cache error is logged and the fetch
// proceeds against the provider.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) ([]availability.Slot, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("calendar cache read failed", "err", err, "key", key)
		}
		return nil, false
	}
	var slots []availability.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn("calendar cache entry corrupt, ignoring", "err", err, "key", key)
		return nil, false
	}
	return slots, true
}

func (c *Cache) Set(ctx context.Context, key string, slots []availability.Slot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("calendar cache write failed", "err", err, "key", key)
	}
}
