package serpgoogle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vihaankava/nonprofit/library/search"
)

func TestSearchEngineSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "test-query", r.URL.Query().Get("q"))
		require.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		require.Equal(t, "google", r.URL.Query().Get("engine"))
		require.Equal(t, "3", r.URL.Query().Get("num"))
		require.Equal(t, "Denver", r.URL.Query().Get("location"))

		payload := map[string]any{
			"search_parameters":  map[string]any{"q": "test-query"},
			"search_metadata":    map[string]any{"total_time_taken": 1.5},
			"search_information": map[string]any{"total_results": 99},
			"organic_results": []map[string]any{
				{"position": 1, "link": "https://example.com", "title": "Example", "snippet": "Snippet"},
				{"position": 2, "title": "No link is skipped"},
				{"position": 4, "link": "https://four.example.com/x", "title": "Four"},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	engine, err := NewSearchEngine("test-key", WithEndpoint(server.URL))
	require.NoError(t, err)

	raw, err := engine.Search(context.Background(), "test-query", search.Params{
		search.ParamCount:    3,
		search.ParamLocation: "Denver",
	})
	require.NoError(t, err)

	results, err := engine.ParseResults(raw)
	require.NoError(t, err)
	require.Equal(t, "test-query", results.Query)
	require.Equal(t, 99, results.TotalResults)
	require.InDelta(t, 1.5, results.SearchTime, 1e-9)
	require.Len(t, results.Results, 2)
	require.Equal(t, "Example", results.Results[0].Title)
	require.Equal(t, "example.com", results.Results[0].Domain)
	require.NotNil(t, results.Results[0].RelevanceScore)
	require.InDelta(t, 1.0, *results.Results[0].RelevanceScore, 1e-9)
	require.InDelta(t, 0.25, *results.Results[1].RelevanceScore, 1e-9)
}

func TestSearchEngineReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}))
	defer server.Close()

	engine, err := NewSearchEngine("key", WithEndpoint(server.URL))
	require.NoError(t, err)

	raw, err := engine.Search(context.Background(), "query", nil)
	require.Error(t, err)
	require.Nil(t, raw)
	require.Contains(t, err.Error(), "quota")
	require.Equal(t, search.KindAPI, search.KindOf(err))
}

func TestSearchEngineHandlesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"server"}`))
	}))
	defer server.Close()

	engine, err := NewSearchEngine("key", WithEndpoint(server.URL),
		WithRequesterOptions(search.WithRetry(0, 0)))
	require.NoError(t, err)

	raw, err := engine.Search(context.Background(), "query", nil)
	require.Error(t, err)
	require.Nil(t, raw)
	require.Contains(t, err.Error(), "HTTP error 500")
}

func TestSearchEngineValidatesAPIKey(t *testing.T) {
	engine, err := NewSearchEngine("")
	require.NoError(t, err)
	require.False(t, engine.IsAvailable())

	raw, err := engine.Search(context.Background(), "query", nil)
	require.Error(t, err)
	require.Nil(t, raw)
	require.Contains(t, err.Error(), "api key")
}
