package searchconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appLog "github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search"
)

var searchEnvKeys = []string{
	"SEARCH_PROVIDER", "SEARCH_ENABLED",
	"BRAVE_API_KEY", "GOOGLE_SEARCH_API_KEY", "GOOGLE_API_KEY", "GOOGLE_SEARCH_ENGINE_ID",
	"BING_SEARCH_API_KEY", "BING_API_KEY", "SERPAPI_API_KEY",
	"SEARCH_TIMEOUT", "SEARCH_MAX_RESULTS", "SEARCH_RETRY_ATTEMPTS", "SEARCH_RETRY_BACKOFF_MS",
	"SEARCH_RATE_LIMIT", "SEARCH_CACHE_BACKEND", "SEARCH_CACHE_TTL", "SEARCH_CACHE_MAX_SIZE",
	"SEARCH_CACHE_CLEANUP_INTERVAL", "SEARCH_CACHE_REDIS_ADDR", "SEARCH_CACHE_REDIS_PASSWORD",
	"SEARCH_CACHE_REDIS_DB", "SEARCH_CACHE_SQLITE_PATH",
}

// clearSearchEnv unsets every search variable for the duration of the test.
func clearSearchEnv(t *testing.T) {
	t.Helper()
	for _, key := range searchEnvKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func loadEnv(t *testing.T, env map[string]string) *Config {
	t.Helper()

	clearSearchEnv(t)
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	return cfg
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := loadEnv(t, nil)

	require.Equal(t, ProviderNone, cfg.Provider)
	require.True(t, cfg.IsEnabled())
	require.False(t, cfg.Active())
	require.Equal(t, 86400, cfg.Cache.TTLSeconds)
	require.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	require.Equal(t, 1000, cfg.Cache.MaxSize)
	require.Equal(t, 5*time.Second, cfg.Timeout())
	require.Equal(t, 10, cfg.MaxResults)
	require.Equal(t, 1, cfg.RetryAttempts)
	require.Equal(t, time.Second, cfg.RetryBackoff())
	require.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	require.Zero(t, cfg.Cache.CleanupInterval())

	require.True(t, cfg.Validate(nil))
	svc, closer := NewService(context.Background(), cfg)
	defer closer()
	require.Nil(t, svc)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		env   map[string]string
		valid bool
	}{
		{"disabled gate ignores credentials", map[string]string{"SEARCH_ENABLED": "false", "SEARCH_PROVIDER": "brave"}, true},
		{"disabled gate is case insensitive", map[string]string{"SEARCH_ENABLED": "FALSE", "SEARCH_PROVIDER": "brave"}, true},
		{"brave placeholder", map[string]string{"SEARCH_PROVIDER": "brave", "BRAVE_API_KEY": "your_brave_api_key_here"}, false},
		{"brave missing", map[string]string{"SEARCH_PROVIDER": "brave"}, false},
		{"brave ok, provider is lowercased", map[string]string{"SEARCH_PROVIDER": " Brave ", "BRAVE_API_KEY": "BSA123"}, true},
		{"google without engine id", map[string]string{"SEARCH_PROVIDER": "google", "GOOGLE_SEARCH_API_KEY": "AIza"}, false},
		{"google ok via alias", map[string]string{"SEARCH_PROVIDER": "google", "GOOGLE_API_KEY": "AIza", "GOOGLE_SEARCH_ENGINE_ID": "cx1"}, true},
		{"bing ok via alias", map[string]string{"SEARCH_PROVIDER": "bing", "BING_API_KEY": "k"}, true},
		{"serp missing", map[string]string{"SEARCH_PROVIDER": "serp_google"}, false},
		{"unknown provider", map[string]string{"SEARCH_PROVIDER": "duckduckgo"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := loadEnv(t, tc.env)
			require.Equal(t, tc.valid, cfg.Validate(nil))
		})
	}
}

func TestNewServiceReturnsNilWhenUnusable(t *testing.T) {
	for _, env := range []map[string]string{
		{"SEARCH_ENABLED": "false", "SEARCH_PROVIDER": "brave", "BRAVE_API_KEY": "BSA123"},
		{"SEARCH_PROVIDER": "brave", "BRAVE_API_KEY": "your_brave_api_key_here"},
		{"SEARCH_PROVIDER": "nope"},
	} {
		cfg := loadEnv(t, env)
		svc, closer := NewService(context.Background(), cfg)
		closer()
		require.Nil(t, svc)
	}

	svc, closer := NewService(context.Background(), nil)
	closer()
	require.Nil(t, svc)
}

func TestNewServiceBuildsEveryProvider(t *testing.T) {
	cases := map[string]map[string]string{
		"brave":       {"BRAVE_API_KEY": "BSA123"},
		"google":      {"GOOGLE_SEARCH_API_KEY": "AIza", "GOOGLE_SEARCH_ENGINE_ID": "cx1"},
		"bing":        {"BING_SEARCH_API_KEY": "k"},
		"serp_google": {"SERPAPI_API_KEY": "k"},
	}
	require.ElementsMatch(t, KnownProviders(), []string{"bing", "brave", "google", "serp_google"})

	for provider, env := range cases {
		t.Run(provider, func(t *testing.T) {
			env["SEARCH_PROVIDER"] = provider
			cfg := loadEnv(t, env)

			svc, closer := NewService(context.Background(), cfg)
			defer closer()
			require.NotNil(t, svc)
			require.Equal(t, provider, svc.ProviderName())
			require.True(t, svc.Available())

			stats, err := svc.Stats(context.Background())
			require.NoError(t, err)
			require.Equal(t, CacheBackendMemory, stats.Backend)
			require.Equal(t, 1000, stats.MaxSize)
		})
	}
}

func TestCacheBackendSelection(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := loadEnv(t, map[string]string{
			"SEARCH_PROVIDER":          "brave",
			"BRAVE_API_KEY":            "BSA123",
			"SEARCH_CACHE_BACKEND":     "SQLite",
			"SEARCH_CACHE_SQLITE_PATH": filepath.Join(t.TempDir(), "cache.db"),
		})

		svc, closer := NewService(context.Background(), cfg)
		defer closer()
		require.NotNil(t, svc)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		require.Equal(t, CacheBackendSQLite, stats.Backend)
	})

	t.Run("sqlite honours max size", func(t *testing.T) {
		cfg := loadEnv(t, map[string]string{
			"SEARCH_CACHE_BACKEND":          "sqlite",
			"SEARCH_CACHE_MAX_SIZE":         "2",
			"SEARCH_CACHE_CLEANUP_INTERVAL": "1",
			"SEARCH_CACHE_SQLITE_PATH":      filepath.Join(t.TempDir(), "cache.db"),
		})
		ctx := context.Background()

		cache, closer := newCache(ctx, cfg, appLog.Logger)
		defer closer()

		for i := 0; i < 5; i++ {
			key, err := search.GenerateKey(fmt.Sprintf("query %d", i), nil)
			require.NoError(t, err)
			require.NoError(t, cache.Set(ctx, key, &search.SearchResults{Query: key}))
		}

		reporter, ok := cache.(search.StatsReporter)
		require.True(t, ok)
		stats, err := reporter.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, CacheBackendSQLite, stats.Backend)
		require.LessOrEqual(t, stats.Size, 2)
		require.Equal(t, 2, stats.MaxSize)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		cfg := loadEnv(t, map[string]string{
			"SEARCH_PROVIDER":         "brave",
			"BRAVE_API_KEY":           "BSA123",
			"SEARCH_CACHE_BACKEND":    "redis",
			"SEARCH_CACHE_REDIS_ADDR": "127.0.0.1:1",
		})

		svc, closer := NewService(context.Background(), cfg)
		defer closer()
		require.NotNil(t, svc)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		require.Equal(t, CacheBackendMemory, stats.Backend)
	})

	t.Run("unknown backend falls back to memory", func(t *testing.T) {
		cfg := loadEnv(t, map[string]string{
			"SEARCH_PROVIDER":       "brave",
			"BRAVE_API_KEY":         "BSA123",
			"SEARCH_CACHE_BACKEND":  "memcached",
			"SEARCH_CACHE_MAX_SIZE": "0",
		})

		svc, closer := NewService(context.Background(), cfg)
		defer closer()
		require.NotNil(t, svc)

		stats, err := svc.Stats(context.Background())
		require.NoError(t, err)
		require.Equal(t, CacheBackendMemory, stats.Backend)
		require.Equal(t, 1000, stats.MaxSize)
	})
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	clearSearchEnv(t)

	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
settings:
  search:
    provider: bing
    bing_api_key: from-file
    max_results: 7
    cache:
      ttl: 60
      max_size: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bing", cfg.Provider)
	require.Equal(t, "from-file", cfg.BingAPIKey)
	require.Equal(t, 7, cfg.MaxResults)
	require.Equal(t, time.Minute, cfg.Cache.TTL())
	require.Equal(t, 5, cfg.Cache.MaxSize)
	require.Equal(t, 5*time.Second, cfg.Timeout(), "unset values keep defaults")

	t.Setenv("SEARCH_PROVIDER", "brave")
	t.Setenv("SEARCH_CACHE_TTL", "120")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "brave", cfg.Provider)
	require.Equal(t, 2*time.Minute, cfg.Cache.TTL())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestProviderInfoHidesCredentials(t *testing.T) {
	cfg := loadEnv(t, map[string]string{"SEARCH_PROVIDER": "brave", "BRAVE_API_KEY": "secret"})

	info := cfg.ProviderInfo()
	require.Equal(t, "brave", info.Provider)
	require.True(t, info.Enabled)
	require.Equal(t, 86400, info.CacheTTL)
	require.NotContains(t, []any{info.Provider, info.CacheBackend}, "secret")
}
