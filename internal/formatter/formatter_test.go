package formatter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vihaankava/nonprofit/internal/policy"
	"github.com/vihaankava/nonprofit/library/search"
)

func TestFormatWithTablesAppends(t *testing.T) {
	aug := &policy.Augmentation{Organizations: []search.Organization{
		{Name: "Springfield <Reads>", Description: "tutoring", Location: "Springfield", Website: "https://reads.example.org"},
		{Name: "No Site", Description: "d", Location: "Springfield"},
	}}

	out := FormatWithTables("# Local partners", aug)
	require.True(t, strings.HasPrefix(out, "# Local partners\n\n"))
	require.Contains(t, out, `<div class="table-wrapper">`)
	require.Contains(t, out, `<table class="search-table organization-table">`)
	require.Contains(t, out, "<caption>Local Organizations and Resources</caption>")
	require.Contains(t, out, "<th>Organization</th>")
	require.Contains(t, out, "Springfield &lt;Reads&gt;")
	require.NotContains(t, out, "<Reads>")
	require.Contains(t, out, `href="https://reads.example.org"`)
	require.Contains(t, out, `target="_blank"`)
	require.Contains(t, out, "N/A")
}

func TestFormatWithTablesInsertsBeforeSources(t *testing.T) {
	aug := &policy.Augmentation{Grants: []search.Grant{
		{Name: "Literacy Fund", Funder: "See website for details", ApplicationURL: "https://fund.example.org"},
	}}

	content := "Intro\n\n## Sources\n1. something"
	out := FormatWithTables(content, aug)

	tableAt := strings.Index(out, "grant-table")
	sourcesAt := strings.Index(out, "## Sources")
	require.Positive(t, tableAt)
	require.Greater(t, sourcesAt, tableAt)
	require.Contains(t, out, "Varies")
	require.Contains(t, out, "See website")
	require.Equal(t, 1, strings.Count(out, "## Sources"))
}

func TestFormatWithTablesWithoutData(t *testing.T) {
	require.Equal(t, "body", FormatWithTables("body", nil))
	require.Equal(t, "body", FormatWithTables("body", &policy.Augmentation{}))
	require.Empty(t, OrganizationTable(nil))
	require.Empty(t, GrantTable(nil))
	require.Empty(t, ResourceTable(nil))
}

func TestResourceTable(t *testing.T) {
	out := ResourceTable([]search.Resource{
		{Title: "Free CRM", URL: "https://crm.example.org", ResourceType: search.ResourceTypeTool, Cost: "free"},
		{Title: "Guide", URL: "https://guide.example.org", ResourceType: search.ResourceTypeGuide},
	})
	require.Contains(t, out, "resource-table")
	require.Contains(t, out, "Tool")
	require.Contains(t, out, "Unknown")
}

func TestAddCitations(t *testing.T) {
	var results []search.SearchResult
	for i := 0; i < 7; i++ {
		results = append(results, search.SearchResult{
			Title:   fmt.Sprintf("Result %d", i),
			URL:     fmt.Sprintf("https://example.org/%d", i),
			Snippet: "snippet",
		})
	}

	out := AddCitations("Body", &search.SearchResults{Results: results}, nil)
	require.True(t, strings.HasPrefix(out, "Body\n\n"))
	require.Contains(t, out, `<div class="citations">`)
	require.Contains(t, out, "<h3>Sources</h3>")
	require.Contains(t, out, `class="citation-list"`)
	require.Contains(t, out, "Result 4")
	require.NotContains(t, out, "Result 5", "only the top results of a source are cited")
	require.Equal(t, CitationsPerSource, strings.Count(out, "<li"))

	require.Equal(t, "Body", AddCitations("Body"))
	require.Equal(t, "Body", AddCitations("Body", &search.SearchResults{}))
}

func TestEnsureLinksClickable(t *testing.T) {
	out := EnsureLinksClickable("Visit https://example.org/path. Thanks")
	require.Equal(t,
		`Visit <a href="https://example.org/path" target="_blank" rel="noopener noreferrer">https://example.org/path</a>. Thanks`,
		out)

	anchored := `<a href="https://example.org">https://example.org</a>`
	require.Equal(t, anchored, EnsureLinksClickable(anchored))

	out = EnsureLinksClickable("see (http://a.example.org) and https://b.example.org")
	require.Contains(t, out, `(<a href="http://a.example.org"`)
	require.Contains(t, out, "</a>) and")
	require.Equal(t, 2, strings.Count(out, "<a "))

	require.Equal(t, "no links here", EnsureLinksClickable("no links here"))
}

func TestEnsureLinksClickableAfterTags(t *testing.T) {
	out := EnsureLinksClickable("<p>https://x.org</p>")
	require.Equal(t,
		`<p><a href="https://x.org" target="_blank" rel="noopener noreferrer">https://x.org</a></p>`,
		out)

	out = EnsureLinksClickable(`<li><a href="https://a.org"><b>https://a.org</b></a> https://b.org</li>`)
	require.Equal(t, 1, strings.Count(out, `href="https://a.org"`), "url nested inside an anchor is kept")
	require.Contains(t, out, `<a href="https://b.org"`)

	out = EnsureLinksClickable(`<img src="https://img.org/a.png">`)
	require.Equal(t, `<img src="https://img.org/a.png">`, out)
}

func TestUnsafeURLsAreNotLinked(t *testing.T) {
	out := AddCitations("Body", &search.SearchResults{Results: []search.SearchResult{
		{Title: "Evil", URL: "javascript:alert(1)"},
		{Title: "Good", URL: "https://good.example.org"},
	}})
	require.NotContains(t, out, "javascript:")
	require.Contains(t, out, "Evil")
	require.Contains(t, out, `href="https://good.example.org"`)

	table := ResourceTable([]search.Resource{
		{Title: "Data", URL: "data:text/html,<script>alert(1)</script>", ResourceType: search.ResourceTypeTool},
	})
	require.NotContains(t, table, "data:text")
	require.Contains(t, table, "N/A")
}
