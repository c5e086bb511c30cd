package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestUnreachableServer(t *testing.T) {
	db := NewDB(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}, KeyPrefixSearchCache)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	ctx := context.Background()

	require.Error(t, db.Ping(ctx))

	_, err := db.Get(ctx, "k")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound), "connection errors are not misses")

	require.Error(t, db.SetWithTTL(ctx, "k", "v", 0), "ttl is checked before dialing")
}

// TestGetSet needs a reachable redis, e.g. REDIS_ADDR=localhost:6379.
func TestGetSet(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	db := NewDB(&redis.Options{Addr: addr}, "nonprofit_test/"+t.Name()+"/")
	t.Cleanup(func() {
		require.NoError(t, db.Clear(ctx))
		require.NoError(t, db.Close())
	})
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Clear(ctx))

	_, err := db.Get(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, db.SetWithTTL(ctx, "k", "v", time.Minute))
	val, err := db.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", val)

	n, err := db.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, db.Clear(ctx))
	n, err = db.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
