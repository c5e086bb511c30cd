package search

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/vihaankava/nonprofit/library/db/redis"
)

var (
	_ Cache         = (*RedisCache)(nil)
	_ StatsReporter = (*RedisCache)(nil)
)

// RedisCache shares cached results between processes. Expiry is enforced by redis,
// and the entry count is bounded by the server's maxmemory policy, not max_size.
type RedisCache struct {
	db  *redis.DB
	ttl time.Duration
}

// NewRedisCache wraps db, storing every entry for ttl.
func NewRedisCache(db *redis.DB, ttl time.Duration) (*RedisCache, error) {
	if db == nil {
		return nil, errors.New("redis db cannot be nil")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("redis cache ttl must be positive: %s", ttl)
	}
	return &RedisCache{db: db, ttl: ttl}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (*SearchResults, bool, error) {
	raw, err := c.db.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get cached search results")
	}

	results := new(SearchResults)
	if err := keyJSON.UnmarshalFromString(raw, results); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal cached search results")
	}
	return results, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, results *SearchResults) error {
	raw, err := keyJSON.MarshalToString(results)
	if err != nil {
		return errors.Wrap(err, "marshal search results")
	}
	return c.db.SetWithTTL(ctx, key, raw, c.ttl)
}

// Clear implements Cache.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.db.Clear(ctx)
}

// Stats implements StatsReporter.
func (c *RedisCache) Stats(ctx context.Context) (CacheStats, error) {
	n, err := c.db.Count(ctx)
	if err != nil {
		return CacheStats{}, errors.Wrap(err, "count redis cache keys")
	}
	return CacheStats{
		Backend:    "redis",
		Size:       n,
		TTLSeconds: c.ttl.Seconds(),
	}, nil
}
