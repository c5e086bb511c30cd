// Package brave implements the Brave Search web API provider.
package brave

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/vihaankava/nonprofit/library/search"
)

const (
	// EngineName is the SEARCH_PROVIDER value selecting this provider.
	EngineName = "brave"

	defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	// maxCount is the largest page size the API accepts.
	maxCount = 20
)

var _ search.Provider = (*SearchEngine)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures the SearchEngine instance.
type Option func(*SearchEngine)

// WithEndpoint overrides the API endpoint, primarily for testing.
func WithEndpoint(endpoint string) Option {
	return func(engine *SearchEngine) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			engine.endpoint = trimmed
		}
	}
}

// WithMaxResults sets the count used when a search does not specify one.
func WithMaxResults(n int) Option {
	return func(engine *SearchEngine) {
		if n > 0 {
			engine.maxResults = n
		}
	}
}

// WithRequesterOptions customises the underlying HTTP requester.
func WithRequesterOptions(opts ...search.RequesterOption) Option {
	return func(engine *SearchEngine) {
		engine.requesterOpts = append(engine.requesterOpts, opts...)
	}
}

// SearchEngine queries the Brave web search API.
type SearchEngine struct {
	apiKey        string
	endpoint      string
	maxResults    int
	requesterOpts []search.RequesterOption
	requester     *search.Requester
}

// NewSearchEngine constructs a Brave provider. A missing or placeholder apiKey
// is not an error here; IsAvailable reports it instead.
func NewSearchEngine(apiKey string, opts ...Option) (*SearchEngine, error) {
	engine := &SearchEngine{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   defaultEndpoint,
		maxResults: search.DefaultMaxResults,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}

	requester, err := search.NewRequester(EngineName, engine.requesterOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "new brave requester")
	}
	engine.requester = requester

	return engine, nil
}

// Name implements search.Provider.
func (e *SearchEngine) Name() string {
	return EngineName
}

// IsAvailable implements search.Provider.
func (e *SearchEngine) IsAvailable() bool {
	return !search.IsPlaceholderCredential(e.apiKey)
}

// Search implements search.Provider and returns the raw JSON payload.
func (e *SearchEngine) Search(ctx context.Context, query string, params search.Params) ([]byte, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, search.NewError(search.KindConfiguration, "search query cannot be empty", nil)
	}
	if !e.IsAvailable() {
		return nil, search.NewError(search.KindConfiguration, "brave api key is not configured", nil)
	}

	count := min(params.Int(search.ParamCount, e.maxResults), maxCount)

	return e.requester.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "create request to `%s`", e.endpoint)
		}

		q := req.URL.Query()
		q.Set("q", query)
		q.Set("count", strconv.Itoa(count))
		if params.String(search.ParamLocation) != "" {
			// the location is part of the query text, only the language is pinned
			q.Set("search_lang", "en")
		}
		if freshness := params.String(search.ParamFreshness); freshness != "" {
			q.Set("freshness", freshness)
		}
		req.URL.RawQuery = q.Encode()

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("X-Subscription-Token", e.apiKey)
		return req, nil
	})
}

// ParseResults implements search.Provider.
func (e *SearchEngine) ParseResults(raw []byte) (*search.SearchResults, error) {
	var payload braveResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal brave response")
	}

	results := make([]search.SearchResult, 0, len(payload.Web.Results))
	for _, item := range payload.Web.Results {
		results = append(results, search.NewSearchResult(item.Title, item.URL, item.Description, nil))
	}

	return &search.SearchResults{
		Query:        payload.Query.Original,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// braveResponse models the subset of fields required from the API response.
type braveResponse struct {
	Query struct {
		Original string `json:"original"`
	} `json:"query"`
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}
