package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/singleflight"

	appLog "github.com/vihaankava/nonprofit/library/log"
)

const (
	DefaultOrganizationLimit = 10
	DefaultGrantLimit        = 10
	DefaultResourceLimit     = 5

	grantFunderUnknown = "See website for details"

	// DefaultFetchTimeout bounds one coalesced provider call including retries.
	DefaultFetchTimeout = 2 * time.Minute
)

// ServiceOption customises a Service during construction.
type ServiceOption func(*Service)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records cache and provider outcomes.
func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithServiceClock replaces time.Now when stamping results, primarily for testing.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithFetchTimeout bounds a coalesced provider call, which runs detached from
// the cancellation of the caller that started it.
func WithFetchTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// Service answers searches from the cache, falling back to the provider on a miss.
//
// Provider failures never reach callers: Search returns nil and the domain
// helpers return empty slices, so callers continue without search augmentation.
type Service struct {
	provider Provider
	cache    Cache
	logger   logSDK.Logger
	metrics  *Metrics
	clock    func() time.Time

	// fetchTimeout bounds a shared provider call, which no single caller can cancel.
	fetchTimeout time.Duration
	// inflight coalesces concurrent misses for the same key into one provider call.
	inflight     singleflight.Group
}

// NewService wires provider and cache into a Service.
func NewService(provider Provider, cache Cache, opts ...ServiceOption) (*Service, error) {
	if provider == nil {
		return nil, errors.New("search provider cannot be nil")
	}
	if cache == nil {
		return nil, errors.New("search cache cannot be nil")
	}

	s := &Service{
		provider:     provider,
		cache:        cache,
		logger:       appLog.Logger.Named("search_service"),
		clock:        time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

// ProviderName returns the name of the wrapped provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Available reports whether the wrapped provider has usable credentials.
func (s *Service) Available() bool {
	return s.provider.IsAvailable()
}

// Search returns results for query, or nil when the provider is unavailable or fails.
// location and filters are optional and take part in the cache key.
// The returned value may be shared with other callers and must not be modified.
func (s *Service) Search(ctx context.Context, query, location string, filters Params) *SearchResults {
	logger := s.loggerFor(ctx)

	key, err := GenerateKey(query, cacheKeyParams(location, filters))
	if err != nil {
		logger.Error("generate search cache key", zap.String("query", query), zap.Error(err))
		return nil
	}

	if cached := s.lookup(ctx, logger, key, true); cached != nil {
		return cached
	}

	// the shared fetch outlives any single caller, each caller waits on its own ctx
	ch := s.inflight.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		// another caller may have filled the entry while we waited
		if cached := s.lookup(fetchCtx, logger, key, false); cached != nil {
			return cached, nil
		}
		return s.fetch(fetchCtx, logger, key, query, location, filters), nil
	})

	select {
	case res := <-ch:
		results, _ := res.Val.(*SearchResults)
		return results
	case <-ctx.Done():
		logger.Debug("search abandoned by caller",
			zap.String("query", query), zap.Error(ctx.Err()))
		return nil
	}
}

// lookup reads key from the cache. record is false for the re-check inside
// a flight so one miss is counted once.
func (s *Service) lookup(ctx context.Context, logger logSDK.Logger, key string, record bool) *SearchResults {
	cached, ok, err := s.cache.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
		logger.Warn("read search cache", zap.Error(err))
		cached = nil
	case ok && cached != nil:
		result = "hit"
	default:
		cached = nil
	}

	if record {
		s.metrics.cacheLookup(result)
	}
	return cached
}

func (s *Service) fetch(ctx context.Context, logger logSDK.Logger,
	key, query, location string, filters Params) *SearchResults {
	if !s.provider.IsAvailable() {
		logger.Debug("search provider unavailable, skip search",
			zap.String("provider", s.provider.Name()))
		return nil
	}

	params := filters.Clone()
	if location != "" {
		params[ParamLocation] = location
	}

	startAt := time.Now()
	results, err := s.callProvider(ctx, query, params)
	if err != nil {
		kind := KindOf(err)
		s.metrics.providerCall(s.provider.Name(), string(kind), time.Since(startAt))
		logger.Error("search failed",
			zap.String("query", query),
			zap.String("provider", s.provider.Name()),
			zap.String("error_type", string(kind)),
			zap.Error(err),
		)
		return nil
	}
	s.metrics.providerCall(s.provider.Name(), "ok", time.Since(startAt))

	if err := s.cache.Set(ctx, key, results); err != nil {
		logger.Warn("write search cache", zap.String("query", query), zap.Error(err))
	}
	return results
}

// callProvider runs search and parse, converting a provider panic into an error.
func (s *Service) callProvider(ctx context.Context, query string, params Params) (results *SearchResults, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("search provider panic: %v", r)
		}
	}()

	raw, err := s.provider.Search(ctx, query, params)
	if err != nil {
		return nil, errors.Wrap(err, "provider search")
	}

	results, err = s.provider.ParseResults(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse provider results")
	}
	if results == nil {
		return nil, errors.New("provider returned no results object")
	}

	if results.Query == "" {
		results.Query = query
	}
	if results.Timestamp.IsZero() {
		results.Timestamp = s.clock()
	}
	return results, nil
}

// SearchLocalOrganizations finds nonprofits and community groups working on cause near location.
// It returns an empty slice when search is unavailable or fails.
func (s *Service) SearchLocalOrganizations(ctx context.Context, cause, location string, limit int) []Organization {
	limit = defaultLimit(limit, DefaultOrganizationLimit)
	query := fmt.Sprintf("%s nonprofit organizations near %s", cause, location)

	results := s.Search(ctx, query, location, Params{ParamCount: limit})
	if results == nil {
		return []Organization{}
	}

	orgs := make([]Organization, 0, min(limit, len(results.Results)))
	for _, r := range head(results.Results, limit) {
		orgs = append(orgs, Organization{
			Name:        r.Title,
			Description: r.Snippet,
			Website:     r.URL,
			Location:    location,
			Relevance:   "Related to " + cause,
		})
	}
	return orgs
}

// SearchGrants finds funding opportunities for cause, optionally restricted to location.
// It returns an empty slice when search is unavailable or fails.
func (s *Service) SearchGrants(ctx context.Context, cause, location string, limit int) []Grant {
	limit = defaultLimit(limit, DefaultGrantLimit)
	query := cause + " grants funding opportunities"
	if location != "" {
		query += " in " + location
	}

	results := s.Search(ctx, query, location, Params{ParamCount: limit})
	if results == nil {
		return []Grant{}
	}

	grants := make([]Grant, 0, min(limit, len(results.Results)))
	for _, r := range head(results.Results, limit) {
		grants = append(grants, Grant{
			Name:           r.Title,
			Funder:         grantFunderUnknown,
			Eligibility:    r.Snippet,
			ApplicationURL: r.URL,
			Description:    r.Snippet,
		})
	}
	return grants
}

// SearchResources finds tools, platforms, guides and articles about topic.
// It returns an empty slice when search is unavailable or fails.
func (s *Service) SearchResources(ctx context.Context, topic string, limit int) []Resource {
	limit = defaultLimit(limit, DefaultResourceLimit)
	query := fmt.Sprintf("%s tools platforms resources for nonprofits", topic)

	results := s.Search(ctx, query, "", Params{ParamCount: limit})
	if results == nil {
		return []Resource{}
	}

	resources := make([]Resource, 0, min(limit, len(results.Results)))
	for _, r := range head(results.Results, limit) {
		resources = append(resources, Resource{
			Title:        r.Title,
			URL:          r.URL,
			Description:  r.Snippet,
			ResourceType: ClassifyResource(r.Title, r.Snippet),
			Cost:         ClassifyCost(r.Title, r.Snippet),
		})
	}
	return resources
}

// Stats returns cache statistics when the cache reports them.
func (s *Service) Stats(ctx context.Context) (CacheStats, error) {
	reporter, ok := s.cache.(StatsReporter)
	if !ok {
		return CacheStats{}, errors.New("search cache does not report stats")
	}

	stats, err := reporter.Stats(ctx)
	if err != nil {
		return CacheStats{}, errors.Wrap(err, "read cache stats")
	}
	return stats, nil
}

// ClearCache drops every cached result.
func (s *Service) ClearCache(ctx context.Context) error {
	return errors.Wrap(s.cache.Clear(ctx), "clear search cache")
}

func (s *Service) loggerFor(ctx context.Context) logSDK.Logger {
	// gmw falls back to its own logger outside a request, so only take it from gin contexts
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); ok {
		return gmw.GetLogger(ctx).Named("search_service")
	}
	return s.logger
}

// cacheKeyParams mirrors the location and filters a search was requested with.
// Absent values are encoded as JSON null.
func cacheKeyParams(location string, filters Params) map[string]any {
	params := map[string]any{"location": nil, "filters": nil}
	if location = strings.TrimSpace(location); location != "" {
		params["location"] = location
	}
	if filters != nil {
		params["filters"] = map[string]any(filters)
	}
	return params
}

func defaultLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func head(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
