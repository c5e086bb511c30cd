package bing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vihaankava/nonprofit/library/search"
)

func TestSearchEngineSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "animal shelters", r.URL.Query().Get("q"))
		require.Equal(t, "4", r.URL.Query().Get("count"))
		require.Equal(t, "Month", r.URL.Query().Get("freshness"))
		require.Equal(t, "en-US", r.URL.Query().Get("mkt"))
		require.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		_, _ = w.Write([]byte(`{
		  "queryContext": {"originalQuery": "animal shelters"},
		  "webPages": {"totalEstimatedMatches": 340, "value": [
		    {"name": "Austin Pets Alive", "url": "https://www.austinpetsalive.org/", "snippet": "No-kill shelter"}
		  ]}
		}`))
	}))
	defer server.Close()

	engine, err := NewSearchEngine("test-key", WithEndpoint(server.URL), WithMarket("en-US"))
	require.NoError(t, err)

	raw, err := engine.Search(context.Background(), "animal shelters", search.Params{
		search.ParamCount:     4,
		search.ParamFreshness: "pm",
	})
	require.NoError(t, err)

	results, err := engine.ParseResults(raw)
	require.NoError(t, err)
	require.Equal(t, "animal shelters", results.Query)
	require.Equal(t, 340, results.TotalResults)
	require.Len(t, results.Results, 1)
	require.Equal(t, "Austin Pets Alive", results.Results[0].Title)
	require.Equal(t, "www.austinpetsalive.org", results.Results[0].Domain)
}

func TestSearchEngineAuthFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	engine, err := NewSearchEngine("bad", WithEndpoint(server.URL),
		WithRequesterOptions(search.WithRetry(1, 10*time.Millisecond)))
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), "q", nil)
	require.Equal(t, search.KindAPI, search.KindOf(err))
	require.EqualValues(t, 1, calls.Load())
}

func TestParseResultsToleratesMissingFields(t *testing.T) {
	engine, err := NewSearchEngine("")
	require.NoError(t, err)
	require.False(t, engine.IsAvailable())

	results, err := engine.ParseResults([]byte(`{"webPages":{"value":[{"url":"https://a.org"}]}}`))
	require.NoError(t, err)
	require.Equal(t, 1, results.TotalResults)
	require.Empty(t, results.Results[0].Title)
	require.Equal(t, "a.org", results.Results[0].Domain)
}
