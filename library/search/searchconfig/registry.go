package searchconfig

import (
	"context"
	"sort"

	"github.com/vihaankava/nonprofit/library/search"
	"github.com/vihaankava/nonprofit/library/search/bing"
	"github.com/vihaankava/nonprofit/library/search/brave"
	"github.com/vihaankava/nonprofit/library/search/google"
	"github.com/vihaankava/nonprofit/library/search/serpgoogle"
)

// providerEntry describes one selectable provider.
type providerEntry struct {
	// missing names the credentials that are absent or placeholders.
	missing func(cfg *Config) []string
	build   func(ctx context.Context, cfg *Config, opts []search.RequesterOption) (search.Provider, error)
}

// registry lists every provider compiled into the binary, keyed by SEARCH_PROVIDER.
var registry = map[string]providerEntry{
	brave.EngineName: {
		missing: func(cfg *Config) []string {
			return missingCredentials(map[string]string{"BRAVE_API_KEY": cfg.BraveAPIKey})
		},
		build: func(_ context.Context, cfg *Config, opts []search.RequesterOption) (search.Provider, error) {
			return brave.NewSearchEngine(cfg.BraveAPIKey,
				brave.WithMaxResults(cfg.MaxResults),
				brave.WithRequesterOptions(opts...))
		},
	},
	google.EngineName: {
		missing: func(cfg *Config) []string {
			return missingCredentials(map[string]string{
				"GOOGLE_SEARCH_API_KEY":   cfg.GoogleAPIKey,
				"GOOGLE_SEARCH_ENGINE_ID": cfg.GoogleEngineID,
			})
		},
		build: func(ctx context.Context, cfg *Config, opts []search.RequesterOption) (search.Provider, error) {
			return google.NewSearchEngine(ctx, cfg.GoogleAPIKey, cfg.GoogleEngineID,
				google.WithMaxResults(cfg.MaxResults),
				google.WithRequesterOptions(opts...))
		},
	},
	bing.EngineName: {
		missing: func(cfg *Config) []string {
			return missingCredentials(map[string]string{"BING_SEARCH_API_KEY": cfg.BingAPIKey})
		},
		build: func(_ context.Context, cfg *Config, opts []search.RequesterOption) (search.Provider, error) {
			return bing.NewSearchEngine(cfg.BingAPIKey,
				bing.WithMaxResults(cfg.MaxResults),
				bing.WithRequesterOptions(opts...))
		},
	},
	serpgoogle.EngineName: {
		missing: func(cfg *Config) []string {
			return missingCredentials(map[string]string{"SERPAPI_API_KEY": cfg.SerpAPIKey})
		},
		build: func(_ context.Context, cfg *Config, opts []search.RequesterOption) (search.Provider, error) {
			return serpgoogle.NewSearchEngine(cfg.SerpAPIKey,
				serpgoogle.WithMaxResults(cfg.MaxResults),
				serpgoogle.WithRequesterOptions(opts...))
		},
	},
}

// KnownProviders returns the selectable provider names in sorted order.
func KnownProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func missingCredentials(creds map[string]string) []string {
	var missing []string
	for key, value := range creds {
		if search.IsPlaceholderCredential(value) {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
