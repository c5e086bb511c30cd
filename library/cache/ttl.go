// Package cache provides a size-bounded in-memory cache with per-entry expiry.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
)

const (
	DefaultTTL     = 24 * time.Hour
	DefaultMaxSize = 1000
)

// Entry is a stored value with its creation and expiry instants.
// Entries are replaced on overwrite, never mutated.
type Entry[V any] struct {
	Data      V
	Timestamp time.Time
	ExpiresAt time.Time
}

// Stats describes the cache for observability.
type Stats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	TTL     time.Duration `json:"ttl"`
	// OldestEntryAge is nil when the cache is empty.
	OldestEntryAge *time.Duration `json:"oldest_entry_age,omitempty"`
}

// Option customises a TTL cache.
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock replaces time.Now, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

type node[V any] struct {
	key   string
	entry Entry[V]
}

// TTL maps string keys to values that expire ttl after they were set.
// The number of entries never exceeds maxSize: inserting a new key into a full
// cache first evicts the entry with the oldest timestamp.
// Reading an expired entry reports a miss and removes it.
//
// All methods are safe for concurrent use.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	clock   func() time.Time
	entries map[string]*list.Element
	// order holds entries by ascending timestamp, front is the oldest.
	order *list.List
}

// NewTTL constructs a TTL cache. ttl must not be negative and maxSize must be positive.
func NewTTL[V any](ttl time.Duration, maxSize int, opts ...Option) (*TTL[V], error) {
	if ttl < 0 {
		return nil, errors.Errorf("ttl must not be negative: %s", ttl)
	}
	if maxSize < 1 {
		return nil, errors.Errorf("max size must be positive: %d", maxSize)
	}

	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	return &TTL[V]{
		ttl:     ttl,
		maxSize: maxSize,
		clock:   o.clock,
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}, nil
}

// Get returns the value stored under key when it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	n := elem.Value.(*node[V])
	if c.clock().After(n.entry.ExpiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	return n.entry.Data, true
}

// Set stores value under key with a fresh timestamp and expiry.
func (c *TTL[V]) Set(key string, value V) {
	now := c.clock()
	entry := Entry[V]{
		Data:      value,
		Timestamp: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*node[V]).entry = entry
		c.order.MoveToBack(elem)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = c.order.PushBack(&node[V]{key: key, entry: entry})
}

// Delete removes key and reports whether it was present.
func (c *TTL[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// CleanupExpired removes every entry whose expiry is in the past and returns how many were removed.
func (c *TTL[V]) CleanupExpired() int {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*node[V]).entry.ExpiresAt.Before(now) {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (c *TTL[V]) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}

// Clear removes all entries.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
}

// Size returns the number of stored entries, expired ones included until they are swept.
func (c *TTL[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current size, configuration and the age of the oldest entry.
func (c *TTL[V]) Stats() Stats {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		TTL:     c.ttl,
	}
	if front := c.order.Front(); front != nil {
		age := now.Sub(front.Value.(*node[V]).entry.Timestamp)
		stats.OldestEntryAge = &age
	}
	return stats
}

// evictOldest drops the front entry. The caller must hold mu.
func (c *TTL[V]) evictOldest() {
	if front := c.order.Front(); front != nil {
		c.removeElement(front)
	}
}

// removeElement drops elem from both indexes. The caller must hold mu.
func (c *TTL[V]) removeElement(elem *list.Element) {
	n := c.order.Remove(elem).(*node[V])
	delete(c.entries, n.key)
}
