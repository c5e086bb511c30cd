package serpgoogle

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/vihaankava/nonprofit/library/search"
)

const (
	// EngineName is the SEARCH_PROVIDER value selecting this provider.
	EngineName = "serp_google"

	defaultEndpoint = "https://serpapi.com/search.json"
)

var _ search.Provider = (*SearchEngine)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures the SearchEngine instance.
type Option func(*SearchEngine)

// WithDefaultParameters supplies key-value pairs that are added to every request.
func WithDefaultParameters(parameters map[string]string) Option {
	return func(engine *SearchEngine) {
		if len(parameters) == 0 {
			return
		}
		engine.defaultParams = make(map[string]string, len(parameters))
		for key, value := range parameters {
			engine.defaultParams[key] = value
		}
	}
}

// WithEndpoint overrides the SerpApi endpoint, primarily for testing.
func WithEndpoint(endpoint string) Option {
	return func(engine *SearchEngine) {
		trimmed := strings.TrimSpace(endpoint)
		if trimmed != "" {
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

// WithRequesterOptions customises the underlying HTTP requester.
func WithRequesterOptions(opts ...search.RequesterOption) Option {
	return func(engine *SearchEngine) {
		engine.requesterOpts = append(engine.requesterOpts, opts...)
	}
}

// SearchEngine queries SerpApi's Google Search endpoint.
type SearchEngine struct {
	apiKey        string
	endpoint      string
	maxResults    int
	defaultParams map[string]string
	requesterOpts []search.RequesterOption
	requester     *search.Requester
}

// NewSearchEngine constructs a SerpApi-backed provider using the provided API key.
// Options can customise the endpoint, default parameters or the requester.
func NewSearchEngine(apiKey string, opts ...Option) (*SearchEngine, error) {
	engine := &SearchEngine{
		apiKey:        strings.TrimSpace(apiKey),
		endpoint:      defaultEndpoint,
		maxResults:    search.DefaultMaxResults,
		defaultParams: map[string]string{"engine": "google", "device": "desktop"},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}

	requester, err := search.NewRequester(EngineName, engine.requesterOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "new serp google requester")
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
// SerpApi may answer 200 with an error field, which is reported as an api_error.
func (e *SearchEngine) Search(ctx context.Context, query string, params search.Params) ([]byte, error) {
	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return nil, search.NewError(search.KindConfiguration, "search query cannot be empty", nil)
	}
	if !e.IsAvailable() {
		return nil, search.NewError(search.KindConfiguration, "serp google api key is not configured", nil)
	}

	endpoint, err := url.Parse(e.endpoint)
	if err != nil {
		return nil, search.NewError(search.KindConfiguration, "invalid serp google endpoint", err)
	}

	body, err := e.requester.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, errors.Wrap(err, "create serp google request")
		}

		q := req.URL.Query()
		for key, value := range e.defaultParams {
			if _, exists := q[key]; !exists {
				q.Set(key, value)
			}
		}
		q.Set("q", trimmedQuery)
		q.Set("api_key", e.apiKey)
		q.Set("num", strconv.Itoa(params.Int(search.ParamCount, e.maxResults)))
		if location := params.String(search.ParamLocation); location != "" {
			q.Set("location", location)
		}
		req.URL.RawQuery = q.Encode()
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return nil, search.NewError(search.KindAPI, "serp google reported error", errors.New(apiErr.Error))
	}

	return body, nil
}

// ParseResults implements search.Provider. The relevance score is 1/position.
func (e *SearchEngine) ParseResults(raw []byte) (*search.SearchResults, error) {
	var payload serpResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal serp google response")
	}

	results := make([]search.SearchResult, 0, len(payload.OrganicResults))
	for _, result := range payload.OrganicResults {
		if strings.TrimSpace(result.Link) == "" {
			continue
		}

		var score *float64
		if result.Position > 0 {
			s := 1 / float64(result.Position)
			score = &s
		}
		results = append(results, search.NewSearchResult(result.Title, result.Link, result.Snippet, score))
	}

	total := payload.SearchInformation.TotalResults
	if total == 0 {
		total = len(results)
	}

	return &search.SearchResults{
		Query:        payload.SearchParameters.Q,
		Results:      results,
		TotalResults: total,
		SearchTime:   payload.SearchMetadata.TotalTimeTaken,
	}, nil
}

// serpResponse models the subset of fields required from the SerpApi response.
type serpResponse struct {
	OrganicResults   []serpOrganicResult `json:"organic_results"`
	SearchParameters struct {
		Q string `json:"q"`
	} `json:"search_parameters"`
	SearchMetadata struct {
		TotalTimeTaken float64 `json:"total_time_taken"`
	} `json:"search_metadata"`
	SearchInformation struct {
		TotalResults int `json:"total_results"`
	} `json:"search_information"`
}

type serpOrganicResult struct {
	Position int    `json:"position"`
	Link     string `json:"link"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}
