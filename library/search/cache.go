package search

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/vihaankava/nonprofit/library/cache"
)

// Cache stores SearchResults under keys produced by GenerateKey.
// A miss, an expired entry and an absent key are all reported as (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (*SearchResults, bool, error)
	Set(ctx context.Context, key string, results *SearchResults) error
	Clear(ctx context.Context) error
}

// CacheStats is reported by caches that can describe themselves.
type CacheStats struct {
	Backend string `json:"backend"`
	Size    int    `json:"size"`
	MaxSize int    `json:"max_size,omitempty"`
	// TTLSeconds is the configured entry lifetime.
	TTLSeconds float64 `json:"ttl_seconds"`
	// OldestEntryAgeSeconds is nil when unknown or when the cache is empty.
	OldestEntryAgeSeconds *float64 `json:"oldest_entry_age_seconds,omitempty"`
}

// StatsReporter is implemented by caches exposing CacheStats.
type StatsReporter interface {
	Stats(ctx context.Context) (CacheStats, error)
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsReporter = (*MemoryCache)(nil)
)

// MemoryCache is the per-process cache. Instances never share state.
type MemoryCache struct {
	store *cache.TTL[*SearchResults]
}

// NewMemoryCache constructs an in-memory cache with the given entry lifetime and size bound.
func NewMemoryCache(ttl time.Duration, maxSize int, opts ...cache.Option) (*MemoryCache, error) {
	store, err := cache.NewTTL[*SearchResults](ttl, maxSize, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "new ttl cache")
	}
	return &MemoryCache{store: store}, nil
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) (*SearchResults, bool, error) {
	results, ok := c.store.Get(key)
	return results, ok, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, results *SearchResults) error {
	c.store.Set(key, results)
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.store.Clear()
	return nil
}

// Size returns the number of stored entries.
func (c *MemoryCache) Size() int {
	return c.store.Size()
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *MemoryCache) CleanupExpired() int {
	return c.store.CleanupExpired()
}

// RunCleanup sweeps expired entries every interval until ctx is done.
func (c *MemoryCache) RunCleanup(ctx context.Context, interval time.Duration) {
	c.store.RunCleanup(ctx, interval)
}

// Stats implements StatsReporter.
func (c *MemoryCache) Stats(context.Context) (CacheStats, error) {
	st := c.store.Stats()
	out := CacheStats{
		Backend:    "memory",
		Size:       st.Size,
		MaxSize:    st.MaxSize,
		TTLSeconds: st.TTL.Seconds(),
	}
	if st.OldestEntryAge != nil {
		age := st.OldestEntryAge.Seconds()
		out.OldestEntryAgeSeconds = &age
	}
	return out, nil
}
