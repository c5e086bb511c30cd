package searchconfig

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vihaankava/nonprofit/library/db/redis"
	"github.com/vihaankava/nonprofit/library/db/sql/kv"
	appLog "github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search"
)

const (
	kvTableName    = "search_cache"
	backendTimeout = 3 * time.Second
)

// Validate reports whether the configuration can be used.
// A disabled gate or provider none is valid. Missing or placeholder credentials
// and unknown providers are invalid and logged as warnings.
func (c *Config) Validate(logger logSDK.Logger) bool {
	if logger == nil {
		logger = appLog.Logger.Named("search_config")
	}

	if !c.IsEnabled() {
		logger.Info("search service is disabled")
		return true
	}
	if c.Provider == ProviderNone {
		logger.Info("no search provider configured, search will be disabled")
		return true
	}

	entry, ok := registry[c.Provider]
	if !ok {
		logger.Warn("unknown search provider, search will be disabled",
			zap.String("provider", c.Provider),
			zap.Strings("known", KnownProviders()))
		return false
	}

	if missing := entry.missing(c); len(missing) > 0 {
		logger.Warn("search provider credentials not configured, search will be disabled",
			zap.String("provider", c.Provider),
			zap.Strings("missing", missing))
		return false
	}

	logger.Info("search provider configured", zap.String("provider", c.Provider))
	return true
}

// FactoryOption customises NewService.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger         logSDK.Logger
	metrics        *search.Metrics
	requesterOpts  []search.RequesterOption
	serviceOptions []search.ServiceOption
}

// WithLogger overrides the logger used while building the service.
func WithLogger(logger logSDK.Logger) FactoryOption {
	return func(o *factoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics attaches metrics to the built service.
func WithMetrics(metrics *search.Metrics) FactoryOption {
	return func(o *factoryOptions) {
		o.metrics = metrics
	}
}

// WithRequesterOptions appends provider transport options, applied after the configured ones.
func WithRequesterOptions(opts ...search.RequesterOption) FactoryOption {
	return func(o *factoryOptions) {
		o.requesterOpts = append(o.requesterOpts, opts...)
	}
}

// WithServiceOptions appends options passed to search.NewService.
func WithServiceOptions(opts ...search.ServiceOption) FactoryOption {
	return func(o *factoryOptions) {
		o.serviceOptions = append(o.serviceOptions, opts...)
	}
}

// NewService builds the configured search.Service.
//
// It returns nil, never an error, when search is disabled, no provider is
// selected, the configuration is invalid or the provider cannot be built:
// the application must run without search.
// The returned closer releases cache resources and is never nil.
func NewService(ctx context.Context, cfg *Config, opts ...FactoryOption) (*search.Service, func()) {
	o := &factoryOptions{logger: appLog.Logger.Named("search_config")}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	noop := func() {}

	if cfg == nil {
		o.logger.Warn("search config is nil, search will be disabled")
		return nil, noop
	}
	if !cfg.Validate(o.logger) {
		o.logger.Info("search service not available due to configuration issues")
		return nil, noop
	}
	if !cfg.Active() {
		return nil, noop
	}

	requesterOpts := append([]search.RequesterOption{
		search.WithTimeout(cfg.Timeout()),
		search.WithRetry(cfg.RetryAttempts, cfg.RetryBackoff()),
		search.WithRateLimit(cfg.RateLimit, 1),
	}, o.requesterOpts...)

	provider, err := registry[cfg.Provider].build(ctx, cfg, requesterOpts)
	if err != nil {
		o.logger.Error("build search provider, search will be disabled",
			zap.String("provider", cfg.Provider), zap.Error(err))
		return nil, noop
	}

	cache, closer := newCache(ctx, cfg, o.logger)

	serviceOpts := append([]search.ServiceOption{
		search.WithLogger(o.logger.Named("search_service")),
		search.WithMetrics(o.metrics),
	}, o.serviceOptions...)
	svc, err := search.NewService(provider, cache, serviceOpts...)
	if err != nil {
		closer()
		o.logger.Error("build search service, search will be disabled", zap.Error(err))
		return nil, noop
	}

	o.logger.Info("search service initialized",
		zap.String("provider", cfg.Provider),
		zap.String("cache_backend", cfg.Cache.Backend))
	return svc, closer
}

// newCache builds the configured cache backend, degrading to memory when the
// backend is unknown or unreachable.
func newCache(ctx context.Context, cfg *Config, logger logSDK.Logger) (search.Cache, func()) {
	switch cfg.Cache.Backend {
	case CacheBackendRedis:
		cache, closer, err := newRedisCache(ctx, cfg)
		if err == nil {
			return cache, closer
		}
		logger.Warn("redis search cache unavailable, fall back to memory", zap.Error(err))
	case CacheBackendSQLite:
		cache, closer, err := newSQLiteCache(ctx, cfg, logger)
		if err == nil {
			return cache, closer
		}
		logger.Warn("sqlite search cache unavailable, fall back to memory", zap.Error(err))
	case CacheBackendMemory:
	default:
		logger.Warn("unknown search cache backend, fall back to memory",
			zap.String("backend", cfg.Cache.Backend))
	}

	return newMemoryCache(ctx, cfg, logger)
}

// cacheLimits returns the configured ttl and max size, replacing unusable values with defaults.
func cacheLimits(cfg *Config, logger logSDK.Logger) (time.Duration, int) {
	ttl, maxSize := cfg.Cache.TTL(), cfg.Cache.MaxSize
	if ttl <= 0 {
		logger.Warn("search cache ttl must be positive, use default", zap.Int("ttl", cfg.Cache.TTLSeconds))
		ttl = 24 * time.Hour
	}
	if maxSize < 1 {
		logger.Warn("search cache max size must be positive, use default", zap.Int("max_size", maxSize))
		maxSize = 1000
	}
	return ttl, maxSize
}

func newMemoryCache(ctx context.Context, cfg *Config, logger logSDK.Logger) (search.Cache, func()) {
	ttl, maxSize := cacheLimits(cfg, logger)
	cache, err := search.NewMemoryCache(ttl, maxSize)
	if err != nil {
		// arguments were sanitised above
		logger.Panic("new memory cache", zap.Error(err))
	}

	interval := cfg.Cache.CleanupInterval()
	if interval <= 0 {
		return cache, func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	go cache.RunCleanup(sweepCtx, interval)
	return cache, cancel
}

func newRedisCache(ctx context.Context, cfg *Config) (search.Cache, func(), error) {
	db := redis.NewDB(&goredis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	}, redis.KeyPrefixSearchCache)

	pingCtx, cancel := context.WithTimeout(ctx, backendTimeout)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "connect redis")
	}

	cache, err := search.NewRedisCache(db, cfg.Cache.TTL())
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "new redis cache")
	}
	return cache, func() { _ = db.Close() }, nil
}

func newSQLiteCache(ctx context.Context, cfg *Config, logger logSDK.Logger) (search.Cache, func(), error) {
	path := strings.TrimSpace(cfg.Cache.SQLitePath)
	if path == "" {
		return nil, nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open sqlite %s", path)
	}

	store, err := kv.NewKv(db, kv.WithTableName(kvTableName))
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "new kv store")
	}

	ttl, maxSize := cacheLimits(cfg, logger)
	cache, err := search.NewKVCache(store, ttl, maxSize)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "new kv cache")
	}

	interval := cfg.Cache.CleanupInterval()
	if interval <= 0 {
		return cache, func() { _ = db.Close() }, nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		cache.RunCleanup(sweepCtx, interval)
	}()
	return cache, func() {
		cancel()
		<-done
		_ = db.Close()
	}, nil
}
