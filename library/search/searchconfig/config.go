// Package searchconfig loads search settings and builds the configured search.Service.
package searchconfig

import (
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ProviderNone = "none"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
)

// Config holds every search setting. Environment variables take precedence over the settings file.
type Config struct {
	Provider string `yaml:"provider" env:"SEARCH_PROVIDER" env-default:"none"`
	// Enabled is kept as text: only a case-insensitive "true" enables search.
	Enabled string `yaml:"enabled" env:"SEARCH_ENABLED" env-default:"true"`

	BraveAPIKey    string `yaml:"brave_api_key" env:"BRAVE_API_KEY"`
	GoogleAPIKey   string `yaml:"google_api_key" env:"GOOGLE_SEARCH_API_KEY,GOOGLE_API_KEY"`
	GoogleEngineID string `yaml:"google_engine_id" env:"GOOGLE_SEARCH_ENGINE_ID"`
	BingAPIKey     string `yaml:"bing_api_key" env:"BING_SEARCH_API_KEY,BING_API_KEY"`
	SerpAPIKey     string `yaml:"serpapi_api_key" env:"SERPAPI_API_KEY"`

	// TimeoutSeconds bounds each provider attempt.
	TimeoutSeconds int     `yaml:"timeout" env:"SEARCH_TIMEOUT" env-default:"5"`
	MaxResults     int     `yaml:"max_results" env:"SEARCH_MAX_RESULTS" env-default:"10"`
	RetryAttempts  int     `yaml:"retry_attempts" env:"SEARCH_RETRY_ATTEMPTS" env-default:"1"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms" env:"SEARCH_RETRY_BACKOFF_MS" env-default:"1000"`
	RateLimit      float64 `yaml:"rate_limit" env:"SEARCH_RATE_LIMIT" env-default:"0"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig selects and sizes the result cache.
type CacheConfig struct {
	Backend    string `yaml:"backend" env:"SEARCH_CACHE_BACKEND" env-default:"memory"`
	TTLSeconds int    `yaml:"ttl" env:"SEARCH_CACHE_TTL" env-default:"86400"`
	MaxSize    int    `yaml:"max_size" env:"SEARCH_CACHE_MAX_SIZE" env-default:"1000"`
	// CleanupIntervalSeconds enables a periodic sweep of expired entries when positive.
	CleanupIntervalSeconds int `yaml:"cleanup_interval" env:"SEARCH_CACHE_CLEANUP_INTERVAL" env-default:"0"`

	RedisAddr     string `yaml:"redis_addr" env:"SEARCH_CACHE_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"SEARCH_CACHE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"SEARCH_CACHE_REDIS_DB" env-default:"0"`

	SQLitePath string `yaml:"sqlite_path" env:"SEARCH_CACHE_SQLITE_PATH" env-default:"search_cache.db"`
}

// fileLayout is the settings file shape; search settings live under settings.search.
type fileLayout struct {
	Settings struct {
		Search Config `yaml:"search"`
	} `yaml:"settings"`
}

// LoadFromEnv reads the configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	cfg := new(Config)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "read search config from env")
	}
	cfg.normalize()
	return cfg, nil
}

// LoadFromFile reads settings.search from the YAML file at path, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	layout := new(fileLayout)
	if err := cleanenv.ReadConfig(path, layout); err != nil {
		return nil, errors.Wrapf(err, "read search config from %s", path)
	}

	cfg := &layout.Settings.Search
	cfg.normalize()
	return cfg, nil
}

// Load reads path when it is not empty, otherwise only the environment.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return LoadFromEnv()
	}
	return LoadFromFile(path)
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderNone
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
}

// Timeout returns the per-attempt provider timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the delay before the first retry.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// TTL returns the cache entry lifetime.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// CleanupInterval returns the cache sweep period, 0 when disabled.
func (c *CacheConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// IsEnabled reports the global on/off gate.
func (c *Config) IsEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(c.Enabled), "true")
}

// Active reports whether search is enabled and a provider is selected.
func (c *Config) Active() bool {
	return c.IsEnabled() && c.Provider != ProviderNone
}

// ProviderInfo summarises the configuration without credentials.
type ProviderInfo struct {
	Provider      string  `json:"provider"`
	Enabled       bool    `json:"enabled"`
	CacheBackend  string  `json:"cache_backend"`
	CacheTTL      int     `json:"cache_ttl"`
	CacheMaxSize  int     `json:"cache_max_size"`
	Timeout       int     `json:"timeout"`
	MaxResults    int     `json:"max_results"`
	RetryAttempts int     `json:"retry_attempts"`
	RateLimit     float64 `json:"rate_limit"`
}

// ProviderInfo returns the non-secret settings.
func (c *Config) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Provider:      c.Provider,
		Enabled:       c.IsEnabled(),
		CacheBackend:  c.Cache.Backend,
		CacheTTL:      c.Cache.TTLSeconds,
		CacheMaxSize:  c.Cache.MaxSize,
		Timeout:       c.TimeoutSeconds,
		MaxResults:    c.MaxResults,
		RetryAttempts: c.RetryAttempts,
		RateLimit:     c.RateLimit,
	}
}
