// Package redis wraps go-redis for the string values the search cache stores.
package redis

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gredis "github.com/Laisky/go-redis/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("redis key not found")

// DB is a wrapper for go-redis
type DB struct {
	db     *gredis.Utils
	prefix string
}

// NewDB creates a new DB instance. Every key is stored under prefix.
func NewDB(opt *redis.Options, prefix string) *DB {
	rdb := redis.NewClient(opt)
	rutils := gredis.NewRedisUtils(rdb)

	return &DB{
		db:     rutils,
		prefix: prefix,
	}
}

// Ping checks connectivity
func (db *DB) Ping(ctx context.Context) error {
	if err := db.db.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}
	return nil
}

// SetWithTTL stores value, letting redis expire it after ttl
func (db *DB) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Errorf("ttl must be greater than 0: %s", ttl)
	}
	if err := db.db.SetItem(ctx, db.prefix+key, value, ttl); err != nil {
		return errors.Wrapf(err, "set key %s", key)
	}
	return nil
}

// Get returns the stored value or ErrNotFound
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	val, err := db.db.GetItem(ctx, db.prefix+key)
	if err != nil {
		if gredis.IsNil(err) {
			return "", errors.Wrapf(ErrNotFound, "key %s", key)
		}
		return "", errors.Wrapf(err, "get key %s", key)
	}
	return val, nil
}

// Count returns the number of keys under the prefix
func (db *DB) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := db.db.Scan(ctx, cursor, db.prefix+"*", 500).Result()
		if err != nil {
			return 0, errors.Wrap(err, "scan keys")
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Clear deletes every key under the prefix
func (db *DB) Clear(ctx context.Context) error {
	iter := db.db.Scan(ctx, 0, db.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		if err := db.db.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.Wrapf(err, "delete key %s", iter.Val())
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan keys")
	}
	return nil
}

// Close releases the connection pool
func (db *DB) Close() error {
	return errors.WithStack(db.db.Close())
}
