// Package bing implements the Bing Web Search v7 provider.
package bing

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
	EngineName = "bing"

	defaultEndpoint = "https://api.bing.microsoft.com/v7.0/search"
	maxCount        = 50
)

var _ search.Provider = (*SearchEngine)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// freshnessValues maps the shared freshness values onto Bing's.
var freshnessValues = map[string]string{
	"pd": "Day",
	"pw": "Week",
	"pm": "Month",
}

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

// WithMarket pins the mkt parameter, e.g. en-US.
func WithMarket(market string) Option {
	return func(engine *SearchEngine) {
		engine.market = strings.TrimSpace(market)
	}
}

// WithRequesterOptions customises the underlying HTTP requester.
func WithRequesterOptions(opts ...search.RequesterOption) Option {
	return func(engine *SearchEngine) {
		engine.requesterOpts = append(engine.requesterOpts, opts...)
	}
}

// SearchEngine queries the Bing Web Search API.
type SearchEngine struct {
	apiKey        string
	endpoint      string
	market        string
	maxResults    int
	requesterOpts []search.RequesterOption
	requester     *search.Requester
}

// NewSearchEngine is a constructor for SearchEngine.
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
		return nil, errors.Wrap(err, "new bing requester")
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
		return nil, search.NewError(search.KindConfiguration, "bing api key is not configured", nil)
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
		q.Set("responseFilter", "Webpages")
		if e.market != "" {
			q.Set("mkt", e.market)
		}
		if freshness, ok := freshnessValues[params.String(search.ParamFreshness)]; ok {
			q.Set("freshness", freshness)
		}
		req.URL.RawQuery = q.Encode()

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)
		return req, nil
	})
}

// ParseResults implements search.Provider.
func (e *SearchEngine) ParseResults(raw []byte) (*search.SearchResults, error) {
	var payload bingResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal bing response")
	}

	results := make([]search.SearchResult, 0, len(payload.WebPages.Value))
	for _, page := range payload.WebPages.Value {
		results = append(results, search.NewSearchResult(page.Name, page.URL, page.Snippet, nil))
	}

	total := payload.WebPages.TotalEstimatedMatches
	if total == 0 {
		total = len(results)
	}

	return &search.SearchResults{
		Query:        payload.QueryContext.OriginalQuery,
		Results:      results,
		TotalResults: total,
	}, nil
}

// bingResponse models the subset of the API response that is normalized.
type bingResponse struct {
	QueryContext struct {
		OriginalQuery string `json:"originalQuery"`
	} `json:"queryContext"`
	WebPages struct {
		TotalEstimatedMatches int       `json:"totalEstimatedMatches"`
		Value                 []webPage `json:"value"`
	} `json:"webPages"`
}

type webPage struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
