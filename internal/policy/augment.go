package policy

import (
	"context"
	"fmt"
	"strings"

	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search"
)

// Searcher is the subset of search.Service the augmenter needs.
type Searcher interface {
	Available() bool
	Search(ctx context.Context, query, location string, filters search.Params) *search.SearchResults
	SearchLocalOrganizations(ctx context.Context, cause, location string, limit int) []search.Organization
	SearchGrants(ctx context.Context, cause, location string, limit int) []search.Grant
	SearchResources(ctx context.Context, topic string, limit int) []search.Resource
}

var _ Searcher = (*search.Service)(nil)

// Augmentation is the search context handed to the prompt builder and the content formatter.
type Augmentation struct {
	Section     Section     `json:"section"`
	ContentType ContentType `json:"content_type"`
	Kind        Kind        `json:"kind"`
	Query       string      `json:"query,omitempty"`
	// SearchAvailable is false when no search service is configured.
	SearchAvailable bool `json:"search_available"`
	// UsedSearch reports whether a search was issued for this content.
	UsedSearch bool `json:"used_search"`

	Results       *search.SearchResults `json:"results,omitempty"`
	Organizations []search.Organization `json:"organizations,omitempty"`
	Grants        []search.Grant        `json:"grants,omitempty"`
	Resources     []search.Resource     `json:"resources,omitempty"`
}

// HasData reports whether the search produced anything worth rendering.
func (a *Augmentation) HasData() bool {
	if a == nil {
		return false
	}
	return (a.Results != nil && len(a.Results.Results) > 0) ||
		len(a.Organizations) > 0 || len(a.Grants) > 0 || len(a.Resources) > 0
}

// PromptContext renders the findings as plain text for an LLM prompt.
// It returns an empty string when there is nothing to add.
func (a *Augmentation) PromptContext() string {
	if !a.HasData() {
		return ""
	}

	var b strings.Builder
	b.WriteString("Web search findings")
	if a.Query != "" {
		fmt.Fprintf(&b, " for %q", a.Query)
	}
	b.WriteString(":\n")

	for _, org := range a.Organizations {
		fmt.Fprintf(&b, "- Organization: %s (%s): %s\n", org.Name, org.Website, org.Description)
	}
	for _, grant := range a.Grants {
		fmt.Fprintf(&b, "- Grant: %s (%s): %s\n", grant.Name, grant.ApplicationURL, grant.Description)
	}
	for _, res := range a.Resources {
		fmt.Fprintf(&b, "- Resource [%s]: %s (%s): %s\n", res.ResourceType, res.Title, res.URL, res.Description)
	}
	if a.Results != nil {
		for _, r := range a.Results.Results {
			fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
		}
	}
	return b.String()
}

// AugmenterOption customises an Augmenter.
type AugmenterOption func(*Augmenter)

// WithAugmenterLogger overrides the fallback logger.
func WithAugmenterLogger(logger logSDK.Logger) AugmenterOption {
	return func(a *Augmenter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLimit caps how many records each domain search returns.
func WithLimit(limit int) AugmenterOption {
	return func(a *Augmenter) {
		if limit > 0 {
			a.limit = limit
		}
	}
}

// Augmenter applies the search policy to content generation requests.
type Augmenter struct {
	searcher Searcher
	logger   logSDK.Logger
	limit    int
}

// NewAugmenter builds an Augmenter. A nil searcher makes every request AI-only.
func NewAugmenter(searcher Searcher, opts ...AugmenterOption) *Augmenter {
	a := &Augmenter{
		searcher: searcher,
		logger:   appLog.Logger.Named("augmenter"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Augment looks up search context for one piece of content.
// It never fails: when search is ineligible, unconfigured or broken the returned
// Augmentation simply carries no data and generation proceeds AI-only.
func (a *Augmenter) Augment(ctx context.Context, idea IdeaSummary, section Section, contentType ContentType) *Augmentation {
	aug := &Augmentation{
		Section:         section,
		ContentType:     contentType,
		Kind:            Lookup(section, contentType),
		SearchAvailable: a.searcher != nil && a.searcher.Available(),
	}
	if aug.Kind == KindNone || !aug.SearchAvailable {
		return aug
	}

	query, params := BuildQuery(idea, section, contentType)
	aug.Query = query
	aug.UsedSearch = true

	cause, location := idea.MainCause(), idea.Place()
	switch aug.Kind {
	case KindOrganizations:
		if location == "" {
			// without a place a "near" query is meaningless
			aug.Kind = KindGeneral
			aug.Results = a.searcher.Search(ctx, query, "", nil)
			break
		}
		aug.Organizations = a.searcher.SearchLocalOrganizations(ctx, cause, location, a.limit)
	case KindGrants:
		aug.Grants = a.searcher.SearchGrants(ctx, cause, location, a.limit)
	case KindResources:
		aug.Resources = a.searcher.SearchResources(ctx, cause, a.limit)
	default:
		aug.Results = a.searcher.Search(ctx, query, params.String(search.ParamLocation), nil)
	}

	a.loggerFor(ctx).Debug("content augmented",
		zap.String("section", string(section)),
		zap.String("content_type", string(contentType)),
		zap.String("kind", string(aug.Kind)),
		zap.String("query", query),
		zap.Bool("has_data", aug.HasData()),
	)
	return aug
}

func (a *Augmenter) loggerFor(ctx context.Context) logSDK.Logger {
	// gmw falls back to its own logger outside a request, so only take it from gin contexts
	if _, ok := gmw.GetGinCtxFromStdCtx(ctx); ok {
		return gmw.GetLogger(ctx).Named("augmenter")
	}
	return a.logger
}
