// Package google implements the Google Programmable Search provider.
package google

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vihaankava/nonprofit/library/search"
)

const (
	// EngineName is the SEARCH_PROVIDER value selecting this provider.
	EngineName = "google"

	// maxNum is the largest page size the API accepts.
	maxNum = 10
)

var _ search.Provider = (*SearchEngine)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// freshnessToDateRestrict maps the shared freshness values onto dateRestrict.
var freshnessToDateRestrict = map[string]string{
	"pd": "d1",
	"pw": "w1",
	"pm": "m1",
	"py": "y1",
}

// Option configures the SearchEngine instance.
type Option func(*SearchEngine)

// WithEndpoint overrides the API base URL, primarily for testing.
func WithEndpoint(endpoint string) Option {
	return func(engine *SearchEngine) {
		if trimmed := strings.TrimSpace(endpoint); trimmed != "" {
			engine.endpoint = trimmed
		}
	}
}

// WithMaxResults sets the num used when a search does not specify one.
func WithMaxResults(n int) Option {
	return func(engine *SearchEngine) {
		if n > 0 {
			engine.maxResults = n
		}
	}
}

// WithRequesterOptions customises retry, timeout and throttling.
func WithRequesterOptions(opts ...search.RequesterOption) Option {
	return func(engine *SearchEngine) {
		engine.requesterOpts = append(engine.requesterOpts, opts...)
	}
}

// SearchEngine provides access to the Google Programmable Search API.
type SearchEngine struct {
	apiKey        string
	cx            string
	endpoint      string
	maxResults    int
	requesterOpts []search.RequesterOption
	requester     *search.Requester
	service       *customsearch.Service
}

// NewSearchEngine instantiates a Programmable Search client with the given credentials.
// The API client is only created when both credentials are usable.
func NewSearchEngine(ctx context.Context, apiKey, cx string, opts ...Option) (*SearchEngine, error) {
	engine := &SearchEngine{
		apiKey:     strings.TrimSpace(apiKey),
		cx:         strings.TrimSpace(cx),
		maxResults: search.DefaultMaxResults,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}

	requester, err := search.NewRequester(EngineName, engine.requesterOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "new google requester")
	}
	engine.requester = requester

	if !engine.IsAvailable() {
		return engine, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(engine.apiKey)}
	if engine.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(engine.endpoint))
	}
	service, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "new custom search service")
	}
	engine.service = service

	return engine, nil
}

// Name implements search.Provider.
func (e *SearchEngine) Name() string {
	return EngineName
}

// IsAvailable implements search.Provider. Both the API key and the engine id are required.
func (e *SearchEngine) IsAvailable() bool {
	return !search.IsPlaceholderCredential(e.apiKey) && !search.IsPlaceholderCredential(e.cx)
}

// Search implements search.Provider and returns the API response encoded as JSON.
func (e *SearchEngine) Search(ctx context.Context, query string, params search.Params) ([]byte, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, search.NewError(search.KindConfiguration, "search query cannot be empty", nil)
	}
	if e.service == nil {
		return nil, search.NewError(search.KindConfiguration,
			"google api key or search engine id (cx) is not configured", nil)
	}

	num := min(params.Int(search.ParamCount, e.maxResults), maxNum)

	return e.requester.Run(ctx, func(ctx context.Context) ([]byte, error) {
		call := e.service.Cse.List().Cx(e.cx).Q(query).Num(int64(num)).Context(ctx)
		if restrict, ok := freshnessToDateRestrict[params.String(search.ParamFreshness)]; ok {
			call = call.DateRestrict(restrict)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}

		raw, err := json.Marshal(resp)
		if err != nil {
			return nil, search.NewError(search.KindAPI, "marshal google response", err)
		}
		return raw, nil
	})
}

// ParseResults implements search.Provider.
func (e *SearchEngine) ParseResults(raw []byte) (*search.SearchResults, error) {
	payload := new(customsearch.Search)
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal google response")
	}

	results := make([]search.SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item == nil {
			continue
		}
		results = append(results, search.NewSearchResult(item.Title, item.Link, item.Snippet, nil))
	}

	out := &search.SearchResults{
		Results:      results,
		TotalResults: len(results),
	}
	if info := payload.SearchInformation; info != nil {
		out.SearchTime = info.SearchTime
		if total, err := strconv.Atoi(info.TotalResults); err == nil {
			out.TotalResults = total
		}
	}
	if payload.Queries != nil && len(payload.Queries.Request) > 0 && payload.Queries.Request[0] != nil {
		out.Query = payload.Queries.Request[0].SearchTerms
	}

	return out, nil
}

// classifyAPIError maps HTTP failures reported by the client library onto search errors.
// Transport failures are returned unchanged for the requester to classify.
// Google reports exhausted quota as 403, which is treated as rate limiting.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.Code == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
		return search.ClassifyStatus(http.StatusTooManyRequests, apiErr.Message)
	}
	return search.ClassifyStatus(apiErr.Code, apiErr.Message)
}
