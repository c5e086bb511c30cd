// Package kv is a small expiring key-value table on top of database/sql.
package kv

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	errors "github.com/Laisky/errors/v2"
)

var (
	_ Interface = new(Kv)

	regexpKey       = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)
	regexpTableName = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyExpired is returned by Get when the key was present but expired.
	// The expired row is removed before returning.
	ErrKeyExpired = errors.New("key expired")
)

const defaultMaxTTL = 30 * 24 * time.Hour

// Item is a stored row
type Item struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpireAt  time.Time `json:"expire_at"`
}

// Interface is a kv interface
type Interface interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Item, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int64, error)
	DeleteOldest(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// Kv stores expiring string values in a single SQL table
type Kv struct {
	opt *option
	db  *sql.DB
}

type option struct {
	tableName string
	maxTTL    time.Duration
	clock     func() time.Time
}

// Option is a function that configures the kv
type Option func(*option) error

func applyOpts(opts ...Option) (*option, error) {
	// fill default
	o := &option{
		tableName: "kv",
		maxTTL:    defaultMaxTTL,
		clock:     time.Now,
	}

	// apply opts
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return o, nil
}

// WithTableName sets the table name
func WithTableName(tableName string) Option {
	return func(o *option) error {
		if !regexpTableName.MatchString(tableName) {
			return errors.Errorf("invalid table name: %s", tableName)
		}
		o.tableName = tableName
		return nil
	}
}

// WithMaxTTL sets the longest accepted ttl
func WithMaxTTL(maxTTL time.Duration) Option {
	return func(o *option) error {
		if maxTTL <= 0 {
			return errors.Errorf("max ttl must be greater than 0: %s", maxTTL)
		}
		o.maxTTL = maxTTL
		return nil
	}
}

// WithClock replaces time.Now
func WithClock(clock func() time.Time) Option {
	return func(o *option) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		o.clock = clock
		return nil
	}
}

// NewKv create a new kv and ensures its table exists
func NewKv(db *sql.DB, opts ...Option) (*Kv, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "apply opts")
	}

	kv := &Kv{
		opt: opt,
		db:  db,
	}

	if err := kv.setup(); err != nil {
		return nil, errors.Wrap(err, "setup kv")
	}

	return kv, nil
}

func (kv *Kv) setup() error {
	stmt := `
CREATE TABLE IF NOT EXISTS ` + kv.opt.tableName + ` (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL,
  expire_at TIMESTAMP NOT NULL
)`

	if _, err := kv.db.Exec(stmt); err != nil {
		return errors.Wrap(err, "create kv table")
	}

	return nil
}

func (kv *Kv) validKey(key string) error {
	if !regexpKey.MatchString(key) {
		return errors.Errorf("invalid key: %s", key)
	}

	return nil
}

// SetWithTTL upserts the value, replacing both created_at and expire_at.
func (kv *Kv) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Errorf("ttl must be greater than 0: %s", ttl)
	}
	if ttl > kv.opt.maxTTL {
		return errors.Errorf("ttl is too far in the future: %s", ttl)
	}
	if err := kv.validKey(key); err != nil {
		return errors.WithStack(err)
	}

	now := kv.opt.clock().UTC()
	stmt := `
INSERT INTO ` + kv.opt.tableName + ` (key, value, created_at, expire_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT(key)
DO UPDATE SET value = EXCLUDED.value, created_at = EXCLUDED.created_at, expire_at = EXCLUDED.expire_at`

	if _, err := kv.db.ExecContext(ctx, stmt, key, value, now, now.Add(ttl)); err != nil {
		return errors.Wrap(err, "upsert kv item")
	}

	return nil
}

// Get retrieves the key's row. If the key is expired,
// it deletes the row and returns ErrKeyExpired.
func (kv *Kv) Get(ctx context.Context, key string) (*Item, error) {
	var doc Item
	stmt := `SELECT key, value, created_at, expire_at FROM ` + kv.opt.tableName + ` WHERE key = $1 LIMIT 1`
	err := kv.db.QueryRowContext(ctx, stmt, key).Scan(&doc.Key, &doc.Value, &doc.CreatedAt, &doc.ExpireAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrKeyNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "get key")
	}

	if kv.opt.clock().After(doc.ExpireAt) {
		if err := kv.Del(ctx, key); err != nil {
			return nil, errors.Wrap(err, "delete expired key")
		}
		return nil, errors.Wrapf(ErrKeyExpired, "key %s", key)
	}
	return &doc, nil
}

// Exists checks whether a key exists and hasn't expired.
func (kv *Kv) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := kv.Get(ctx, key); err != nil {
		if errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrKeyExpired) {
			return false, nil
		}
		return false, errors.Wrap(err, "check existence")
	}

	return true, nil
}

// Del removes the key from the store.
func (kv *Kv) Del(ctx context.Context, key string) error {
	stmt := `DELETE FROM ` + kv.opt.tableName + ` WHERE key = $1`
	if _, err := kv.db.ExecContext(ctx, stmt, key); err != nil {
		return errors.Wrap(err, "delete key")
	}
	return nil
}

// PurgeExpired deletes every row whose expire_at is in the past and returns how many were deleted.
func (kv *Kv) PurgeExpired(ctx context.Context) (int64, error) {
	stmt := `DELETE FROM ` + kv.opt.tableName + ` WHERE expire_at < $1`
	res, err := kv.db.ExecContext(ctx, stmt, kv.opt.clock().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purge expired keys")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// DeleteOldest removes the row with the earliest created_at, ties broken by key.
// It reports whether a row was deleted.
func (kv *Kv) DeleteOldest(ctx context.Context) (bool, error) {
	stmt := `DELETE FROM ` + kv.opt.tableName + ` WHERE key = (
  SELECT key FROM ` + kv.opt.tableName + ` ORDER BY created_at ASC, key ASC LIMIT 1
)`
	res, err := kv.db.ExecContext(ctx, stmt)
	if err != nil {
		return false, errors.Wrap(err, "delete oldest key")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

// Count returns the number of rows, expired ones included until purged.
func (kv *Kv) Count(ctx context.Context) (int64, error) {
	var n int64
	stmt := `SELECT COUNT(*) FROM ` + kv.opt.tableName
	if err := kv.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count keys")
	}
	return n, nil
}

// Clear deletes every row.
func (kv *Kv) Clear(ctx context.Context) error {
	if _, err := kv.db.ExecContext(ctx, `DELETE FROM `+kv.opt.tableName); err != nil {
		return errors.Wrap(err, "clear kv table")
	}
	return nil
}
