package search

import (
	"net/url"
	"strings"
	"time"
)

// SearchResult is one matched document returned by a provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	// Domain is derived from URL, never supplied by the provider.
	Domain string `json:"domain"`
	// RelevanceScore is nil when the provider does not rank with scores.
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

// SearchResults is the normalized outcome of a single provider call.
// Results keep the provider's ranking order.
//
// Values are shared between the cache and every caller that receives them,
// so callers must treat them as read-only.
type SearchResults struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	// SearchTime is reported in seconds, 0 when the provider does not supply it.
	SearchTime float64   `json:"search_time"`
	Timestamp  time.Time `json:"timestamp"`
}

// Organization is a local nonprofit or community resource projected from a SearchResult.
type Organization struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website,omitempty"`
	Location    string `json:"location"`
	Contact     string `json:"contact,omitempty"`
	// Relevance explains why the organization matters to the idea.
	Relevance string `json:"relevance"`
}

// Grant is a funding opportunity projected from a SearchResult.
type Grant struct {
	Name           string `json:"name"`
	Funder         string `json:"funder"`
	Amount         string `json:"amount,omitempty"`
	Deadline       string `json:"deadline,omitempty"`
	Eligibility    string `json:"eligibility"`
	ApplicationURL string `json:"application_url"`
	Description    string `json:"description"`
}

// ResourceType classifies a Resource.
type ResourceType string

const (
	ResourceTypeTool     ResourceType = "tool"
	ResourceTypeGuide    ResourceType = "guide"
	ResourceTypeArticle  ResourceType = "article"
	ResourceTypePlatform ResourceType = "platform"
)

// Resource is a tool, platform, guide or article projected from a SearchResult.
type Resource struct {
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	Description  string       `json:"description"`
	ResourceType ResourceType `json:"resource_type"`
	// Cost is one of free, freemium or paid, empty when unknown.
	Cost string `json:"cost,omitempty"`
}

// ExtractDomain returns the host part of rawURL, or an empty string when it cannot be parsed.
func ExtractDomain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// NewSearchResult builds a SearchResult and fills Domain from rawURL.
func NewSearchResult(title, rawURL, snippet string, score *float64) SearchResult {
	return SearchResult{
		Title:          strings.TrimSpace(title),
		URL:            strings.TrimSpace(rawURL),
		Snippet:        strings.TrimSpace(snippet),
		Domain:         ExtractDomain(rawURL),
		RelevanceScore: score,
	}
}
