package kv

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func setupTestKv(t *testing.T, opts ...Option) *Kv {
	t.Helper()

	// every test gets its own named in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err, "failed to connect to in-memory db")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	opts = append([]Option{WithTableName("test_kv")}, opts...)
	kvInstance, err := NewKv(db, opts...)
	require.NoError(t, err, "failed to create kv instance")
	return kvInstance
}

func TestSetAndGet(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	key, value := "testkey", "testvalue"
	err := kvInstance.SetWithTTL(ctx, key, value, 5*time.Second)
	require.NoError(t, err, "SetWithTTL should not error")

	item, err := kvInstance.Get(ctx, key)
	require.NoError(t, err, "Get should not error")
	require.Equal(t, key, item.Key)
	require.Equal(t, value, item.Value)
}

func TestSetOverwrites(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	require.NoError(t, kvInstance.SetWithTTL(ctx, "k", "v1", time.Minute))
	require.NoError(t, kvInstance.SetWithTTL(ctx, "k", "v2", time.Minute))

	item, err := kvInstance.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", item.Value)

	n, err := kvInstance.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestKeyExpiration(t *testing.T) {
	clock := &testClock{now: time.Now()}
	kvInstance := setupTestKv(t, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, kvInstance.SetWithTTL(ctx, "expirekey", "expirevalue", time.Second))

	clock.now = clock.now.Add(2 * time.Second)
	_, err := kvInstance.Get(ctx, "expirekey")
	require.True(t, errors.Is(err, ErrKeyExpired), "key should be expired")

	_, err = kvInstance.Get(ctx, "expirekey")
	require.True(t, errors.Is(err, ErrKeyNotFound), "expired key should be removed")
}

func TestExistsAndDel(t *testing.T) {
	kvInstance := setupTestKv(t)
	ctx := context.Background()

	key := "existkey"
	require.NoError(t, kvInstance.SetWithTTL(ctx, key, "existvalue", 10*time.Second))

	exists, err := kvInstance.Exists(ctx, key)
	require.NoError(t, err, "Exists should not error")
	require.True(t, exists, "key should exist")

	require.NoError(t, kvInstance.Del(ctx, key))

	exists, err = kvInstance.Exists(ctx, key)
	require.NoError(t, err, "Exists after deletion should not error")
	require.False(t, exists, "key should not exist after deletion")
}

func TestPurgeExpiredAndClear(t *testing.T) {
	clock := &testClock{now: time.Now()}
	kvInstance := setupTestKv(t, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, kvInstance.SetWithTTL(ctx, "short", "1", time.Second))
	require.NoError(t, kvInstance.SetWithTTL(ctx, "long", "2", time.Hour))

	clock.now = clock.now.Add(time.Minute)
	n, err := kvInstance.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	count, err := kvInstance.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	require.NoError(t, kvInstance.Clear(ctx))
	count, err = kvInstance.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestDeleteOldest(t *testing.T) {
	clock := &testClock{now: time.Now()}
	kvInstance := setupTestKv(t, WithClock(clock.Now))
	ctx := context.Background()

	deleted, err := kvInstance.DeleteOldest(ctx)
	require.NoError(t, err)
	require.False(t, deleted, "empty table")

	for _, key := range []string{"first", "second", "third"} {
		require.NoError(t, kvInstance.SetWithTTL(ctx, key, key, time.Hour))
		clock.now = clock.now.Add(time.Second)
	}
	// rewriting a key makes it the newest
	require.NoError(t, kvInstance.SetWithTTL(ctx, "first", "again", time.Hour))

	deleted, err = kvInstance.DeleteOldest(ctx)
	require.NoError(t, err)
	require.True(t, deleted)

	exists, err := kvInstance.Exists(ctx, "second")
	require.NoError(t, err)
	require.False(t, exists)
	for _, key := range []string{"first", "third"} {
		exists, err = kvInstance.Exists(ctx, key)
		require.NoError(t, err)
		require.True(t, exists, key)
	}
}

func TestInvalidInput(t *testing.T) {
	kvInstance := setupTestKv(t, WithMaxTTL(time.Hour))
	ctx := context.Background()

	require.Error(t, kvInstance.SetWithTTL(ctx, "bad key!", "v", time.Minute))
	require.Error(t, kvInstance.SetWithTTL(ctx, "k", "v", 0))
	require.Error(t, kvInstance.SetWithTTL(ctx, "k", "v", 2*time.Hour))

	_, err := NewKv(nil)
	require.Error(t, err)
	_, err = applyOpts(WithTableName("drop table;"))
	require.Error(t, err)
}
