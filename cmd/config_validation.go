package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/vihaankava/nonprofit/library/search/searchconfig"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates the loaded settings file.
// Keys that are absent are skipped, the environment may still provide them.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter returns one error listing every malformed value.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	v := &settingsValidator{get: get}
	v.search()
	v.searchCache()
	v.web()

	if len(v.errs) == 0 {
		return nil
	}
	return errors.Errorf("invalid configuration:\n - %s", strings.Join(v.errs, "\n - "))
}

// settingsValidator collects validation failures for optional keys.
type settingsValidator struct {
	get  configGetter
	errs []string
}

func (v *settingsValidator) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

// search checks provider and transport settings.
// Credentials are not checked here, a provider without them only disables search.
func (v *settingsValidator) search() {
	v.boolean("settings.search.enabled")
	v.oneOf("settings.search.provider",
		append([]string{searchconfig.ProviderNone}, searchconfig.KnownProviders()...))
	v.intAtLeast("settings.search.timeout", 1)
	v.intAtLeast("settings.search.max_results", 1)
	v.intAtLeast("settings.search.retry_attempts", 0)
	v.intAtLeast("settings.search.retry_backoff_ms", 0)
	v.floatAtLeast("settings.search.rate_limit", 0)
}

func (v *settingsValidator) searchCache() {
	v.oneOf("settings.search.cache.backend", []string{
		searchconfig.CacheBackendMemory,
		searchconfig.CacheBackendRedis,
		searchconfig.CacheBackendSQLite,
	})
	v.intAtLeast("settings.search.cache.ttl", 1)
	v.intAtLeast("settings.search.cache.max_size", 0)
	v.intAtLeast("settings.search.cache.cleanup_interval", 0)
	v.intAtLeast("settings.search.cache.redis_db", 0)
	v.nonEmptyString("settings.search.cache.sqlite_path")

	const addrKey = "settings.search.cache.redis_addr"
	if raw := v.get(addrKey); raw != nil {
		if addr, ok := raw.(string); !ok || !isBareHost(addr) {
			v.fail("%s must be host:port without scheme", addrKey)
		}
	}
}

// web checks settings.web.allowed_origins, a list of bare hosts or "*".
func (v *settingsValidator) web() {
	const key = "settings.web.allowed_origins"
	raw := v.get(key)
	if raw == nil {
		return
	}

	var items []any
	switch list := raw.(type) {
	case []any:
		items = list
	case []string:
		for _, s := range list {
			items = append(items, s)
		}
	default:
		v.fail("%s must be a list of hosts", key)
		return
	}

	for i, item := range items {
		host, ok := item.(string)
		if !ok || (strings.TrimSpace(host) != "*" && !isBareHost(host)) {
			v.fail("%s[%d] must be a host like example.org or *", key, i)
		}
	}
}

func (v *settingsValidator) boolean(key string) {
	raw := v.get(key)
	if raw == nil {
		return
	}
	if _, ok := toBool(raw); !ok {
		v.fail("%s must be a boolean", key)
	}
}

func (v *settingsValidator) intAtLeast(key string, min int) {
	raw := v.get(key)
	if raw == nil {
		return
	}

	n, err := toInt(raw)
	switch {
	case err != nil:
		v.fail("%s must be an integer", key)
	case n < min:
		v.fail("%s must be >= %d", key, min)
	}
}

func (v *settingsValidator) floatAtLeast(key string, min float64) {
	raw := v.get(key)
	if raw == nil {
		return
	}

	f, err := toFloat(raw)
	switch {
	case err != nil:
		v.fail("%s must be a number", key)
	case f < min || math.IsNaN(f) || math.IsInf(f, 0):
		v.fail("%s must be a finite number >= %g", key, min)
	}
}

func (v *settingsValidator) nonEmptyString(key string) {
	raw := v.get(key)
	if raw == nil {
		return
	}
	if s, ok := raw.(string); !ok || strings.TrimSpace(s) == "" {
		v.fail("%s must be a non-empty string", key)
	}
}

// oneOf matches case-insensitively, the loaders lower-case these values.
func (v *settingsValidator) oneOf(key string, allowed []string) {
	raw := v.get(key)
	if raw == nil {
		return
	}

	s, ok := raw.(string)
	if !ok {
		v.fail("%s must be a string", key)
		return
	}

	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return
		}
	}
	v.fail("%s must be one of %s", key, strings.Join(allowed, ", "))
}

// toBool accepts YAML booleans, integral numbers and true/false/yes/no/1/0 strings.
func toBool(value any) (bool, bool) {
	switch b := value.(type) {
	case bool:
		return b, true
	case int:
		return b != 0, true
	case int64:
		return b != 0, true
	case float64:
		return b != 0, math.Trunc(b) == b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}

func toInt(value any) (int, error) {
	switch n := value.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if math.Trunc(n) != n {
			return 0, errors.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", n)
		}
		return parsed, nil
	}
	return 0, errors.Errorf("unsupported int type %T", value)
}

func toFloat(value any) (float64, error) {
	switch f := value.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	case int64:
		return float64(f), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", f)
		}
		return parsed, nil
	}
	return 0, errors.Errorf("unsupported float type %T", value)
}

// isBareHost rejects empty values and anything carrying a scheme or path.
func isBareHost(host string) bool {
	host = strings.TrimSpace(host)
	return host != "" && !strings.Contains(host, "://") && !strings.Contains(host, "/")
}
