package loyalty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/pricing"
	"github.com/redis/go-redis/v9"
)

// Store is the subset of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache memoizes visit counts per customer and day in redis. Redis errors
// fall through to the wrapped lookup.
type Cache struct {
	next   pricing.LoyaltyLookup
	store  Store
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

func NewCache(next pricing.LoyaltyLookup, store Store, logger *slog.Logger, cfg CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = "loyalty:v1"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{next: next, store: store, ttl: cfg.TTL, prefix: cfg.Prefix, logger: logger}
}

func (c *Cache) key(customer string, before time.Time) string {
	name := strings.ToLower(strings.TrimSpace(customer))
	return fmt.Sprintf("%s:%s:%s", c.prefix, name, before.UTC().Format(time.RFC3339))
}

func (c *Cache) PriorVisits(ctx context.Context, customer string, before time.Time) (int, error) {
	if c.store == nil {
		return c.next.PriorVisits(ctx, customer, before)
	}
	key := c.key(customer, before)

	raw, err := c.store.Get(ctx, key).Result()
	switch {
	case err == nil:
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			return n, nil
		}
		c.logger.Warn("loyalty cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("loyalty cache read failed", "err", err)
	}

	n, err := c.next.PriorVisits(ctx, customer, before)
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(ctx, key, strconv.Itoa(n), c.ttl).Err(); err != nil {
		c.logger.Warn("loyalty cache write failed", "err", err)
	}
	return n, nil
}
