package search

import (
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/vihaankava/nonprofit/library/db/sql/kv"
	appLog "github.com/vihaankava/nonprofit/library/log"
)

var (
	_ Cache         = (*KVCache)(nil)
	_ StatsReporter = (*KVCache)(nil)
)

// KVCache persists cached results in a SQL table, surviving restarts.
type KVCache struct {
	store   kv.Interface
	ttl     time.Duration
	maxSize int

	// writeMu serialises the count-then-evict step of Set
	writeMu sync.Mutex
}

// NewKVCache wraps store, storing every entry for ttl and keeping at most
// maxSize rows. A maxSize of 0 leaves the table unbounded.
func NewKVCache(store kv.Interface, ttl time.Duration, maxSize int) (*KVCache, error) {
	if store == nil {
		return nil, errors.New("kv store cannot be nil")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("kv cache ttl must be positive: %s", ttl)
	}
	if maxSize < 0 {
		return nil, errors.Errorf("kv cache max size must not be negative: %d", maxSize)
	}
	return &KVCache{store: store, ttl: ttl, maxSize: maxSize}, nil
}

// Get implements Cache.
func (c *KVCache) Get(ctx context.Context, key string) (*SearchResults, bool, error) {
	item, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) || errors.Is(err, kv.ErrKeyExpired) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get cached search results")
	}

	results := new(SearchResults)
	if err := keyJSON.UnmarshalFromString(item.Value, results); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal cached search results")
	}
	return results, true, nil
}

// Set implements Cache.
func (c *KVCache) Set(ctx context.Context, key string, results *SearchResults) error {
	raw, err := keyJSON.MarshalToString(results)
	if err != nil {
		return errors.Wrap(err, "marshal search results")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.makeRoom(ctx, key); err != nil {
		return errors.Wrap(err, "evict kv cache rows")
	}
	return c.store.SetWithTTL(ctx, key, raw, c.ttl)
}

// makeRoom drops expired rows, then the oldest ones, until a new key fits.
// Overwriting an existing key needs no room.
func (c *KVCache) makeRoom(ctx context.Context, key string) error {
	if c.maxSize <= 0 {
		return nil
	}

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return errors.Wrap(err, "check key")
	}
	if exists {
		return nil
	}

	n, err := c.store.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count rows")
	}
	if n < int64(c.maxSize) {
		return nil
	}

	purged, err := c.store.PurgeExpired(ctx)
	if err != nil {
		return errors.Wrap(err, "purge expired rows")
	}
	for n -= purged; n >= int64(c.maxSize); n-- {
		deleted, err := c.store.DeleteOldest(ctx)
		if err != nil {
			return errors.Wrap(err, "delete oldest row")
		}
		if !deleted {
			break
		}
	}
	return nil
}

// Clear implements Cache.
func (c *KVCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// CleanupExpired purges expired rows.
func (c *KVCache) CleanupExpired(ctx context.Context) (int64, error) {
	return c.store.PurgeExpired(ctx)
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (c *KVCache) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	logger := appLog.Logger.Named("search_kv_cache")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("purge expired search cache rows", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired search cache rows", zap.Int64("rows", n))
			}
		}
	}
}

// Stats implements StatsReporter.
func (c *KVCache) Stats(ctx context.Context) (CacheStats, error) {
	n, err := c.store.Count(ctx)
	if err != nil {
		return CacheStats{}, errors.Wrap(err, "count kv cache rows")
	}
	return CacheStats{
		Backend:    "sqlite",
		Size:       int(n),
		MaxSize:    c.maxSize,
		TTLSeconds: c.ttl.Seconds(),
	}, nil
}
