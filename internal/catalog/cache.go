package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 5 * time.Minute

// CachedStore is a redis read-through cache in front of a Finder. Misses are
// never cached, and any redis failure falls through to the backing store.
type CachedStore struct {
	next   Finder
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next Finder, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		next:   next,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With("component", "catalog_cache"),
	}
}

func cacheKey(className string) string {
	return "catalog:class:" + className
}

func (c *CachedStore) FindByClass(ctx context.Context, className string) (*Product, error) {
	key := cacheKey(className)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product Product
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	product, err := c.next.FindByClass(ctx, className)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(product)
	if err != nil {
		return product, nil
	}
	if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return product, nil
}

func (c *CachedStore) Invalidate(ctx context.Context, classNames ...string) error {
	if len(classNames) == 0 {
		return nil
	}
	keys := make([]string, len(classNames))
	for i, name := range classNames {
		keys[i] = cacheKey(name)
	}
	return c.redis.Del(ctx, keys...).Err()
}
