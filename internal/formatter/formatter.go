// Package formatter decorates generated content with search-derived tables,
// citations and clickable links.
package formatter

import (
	"fmt"
	stdhtml "html"
	"net/url"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"

	"github.com/vihaankava/nonprofit/internal/policy"
	"github.com/vihaankava/nonprofit/library/search"
)

// CitationsPerSource caps how many results of one search are cited.
const CitationsPerSource = 5

var (
	sourcesHeadingRegexp = regexp.MustCompile(`## (?:Sources|Citations)`)
	bareURLRegexp        = regexp.MustCompile(`https?://[^\s<>"]+`)
	anchorOpenRegexp     = regexp.MustCompile(`(?i)<a[\s>]`)
	anchorCloseRegexp    = regexp.MustCompile(`(?i)</a\s*>`)
)

// TableType selects the table layout.
type TableType string

const (
	TableOrganization TableType = "organization"
	TableGrant        TableType = "grant"
	TableResource     TableType = "resource"
)

func newRenderer() *html.Renderer {
	return html.NewRenderer(html.RendererOptions{
		Flags: html.HrefTargetBlank | html.NoopenerLinks | html.NoreferrerLinks,
	})
}

// FormatWithTables embeds the domain tables of aug into content.
// Tables go right before a "## Sources" or "## Citations" heading when present,
// otherwise they are appended. Content is returned unchanged when aug has no domain data.
func FormatWithTables(content string, aug *policy.Augmentation) string {
	if aug == nil {
		return content
	}

	var tables []string
	if t := OrganizationTable(aug.Organizations); t != "" {
		tables = append(tables, t)
	}
	if t := GrantTable(aug.Grants); t != "" {
		tables = append(tables, t)
	}
	if t := ResourceTable(aug.Resources); t != "" {
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return content
	}

	return insertBeforeSources(content, strings.Join(tables, "\n"))
}

func insertBeforeSources(content, block string) string {
	loc := sourcesHeadingRegexp.FindStringIndex(content)
	if loc == nil {
		return content + "\n\n" + block
	}
	return content[:loc[0]] + "\n\n" + block + "\n\n" + content[loc[0]:]
}

// OrganizationTable renders local organizations, empty for no rows.
func OrganizationTable(orgs []search.Organization) string {
	if len(orgs) == 0 {
		return ""
	}

	rows := make([][]ast.Node, 0, len(orgs))
	for _, org := range orgs {
		rows = append(rows, []ast.Node{
			text(org.Name),
			text(org.Description),
			text(org.Location),
			linkOr(org.Website, "Visit Website", "N/A"),
		})
	}
	return renderTable(TableOrganization, "Local Organizations and Resources",
		[]string{"Organization", "Description", "Location", "Website"}, rows)
}

// GrantTable renders funding opportunities, empty for no rows.
func GrantTable(grants []search.Grant) string {
	if len(grants) == 0 {
		return ""
	}

	rows := make([][]ast.Node, 0, len(grants))
	for _, grant := range grants {
		rows = append(rows, []ast.Node{
			text(grant.Name),
			text(grant.Funder),
			text(orDefault(grant.Amount, "Varies")),
			text(orDefault(grant.Deadline, "See website")),
			linkOr(grant.ApplicationURL, "Apply", "N/A"),
		})
	}
	return renderTable(TableGrant, "Grant Opportunities",
		[]string{"Grant Name", "Funder", "Amount", "Deadline", "Application"}, rows)
}

// ResourceTable renders tools and platforms, empty for no rows.
func ResourceTable(resources []search.Resource) string {
	if len(resources) == 0 {
		return ""
	}

	rows := make([][]ast.Node, 0, len(resources))
	for _, res := range resources {
		rows = append(rows, []ast.Node{
			text(res.Title),
			text(res.Description),
			text(titleCase(string(res.ResourceType))),
			text(orDefault(res.Cost, "Unknown")),
			linkOr(res.URL, "Visit", "N/A"),
		})
	}
	return renderTable(TableResource, "Tools and Resources",
		[]string{"Resource", "Description", "Type", "Cost", "Link"}, rows)
}

func renderTable(typ TableType, caption string, headers []string, rows [][]ast.Node) string {
	table := &ast.Table{}

	head := &ast.TableHeader{}
	headRow := &ast.TableRow{}
	for _, h := range headers {
		cell := &ast.TableCell{IsHeader: true}
		ast.AppendChild(cell, text(h))
		ast.AppendChild(headRow, cell)
	}
	ast.AppendChild(head, headRow)
	ast.AppendChild(table, head)

	body := &ast.TableBody{}
	for _, row := range rows {
		tr := &ast.TableRow{}
		for _, content := range row {
			cell := &ast.TableCell{}
			ast.AppendChild(cell, content)
			ast.AppendChild(tr, cell)
		}
		ast.AppendChild(body, tr)
	}
	ast.AppendChild(table, body)

	doc := &ast.Document{}
	ast.AppendChild(doc, table)

	out := string(markdown.Render(doc, newRenderer()))
	out = strings.Replace(out, "<table>",
		fmt.Sprintf(`<table class="search-table %s-table">`+"\n"+`<caption>%s</caption>`,
			typ, stdhtml.EscapeString(caption)), 1)
	return `<div class="table-wrapper">` + "\n" + strings.TrimSpace(out) + "\n</div>\n"
}

// AddCitations appends a numbered list of the top results of every source.
// Content is returned unchanged when no source has results.
func AddCitations(content string, sources ...*search.SearchResults) string {
	list := &ast.List{ListFlags: ast.ListTypeOrdered, Tight: true}
	for _, src := range sources {
		if src == nil {
			continue
		}

		results := src.Results
		if len(results) > CitationsPerSource {
			results = results[:CitationsPerSource]
		}
		for _, r := range results {
			item := &ast.ListItem{ListFlags: ast.ListTypeOrdered, Tight: true}
			ast.AppendChild(item, link(r.URL, orDefault(r.Title, r.URL)))
			if r.Snippet != "" {
				ast.AppendChild(item, text(" - "+r.Snippet))
			}
			ast.AppendChild(list, item)
		}
	}
	if len(list.Children) == 0 {
		return content
	}

	doc := &ast.Document{}
	ast.AppendChild(doc, list)
	rendered := strings.TrimSpace(string(markdown.Render(doc, newRenderer())))
	rendered = strings.Replace(rendered, "<ol>", `<ol class="citation-list">`, 1)

	return content + "\n\n" + `<div class="citations">` + "\n<h3>Sources</h3>\n" + rendered + "\n</div>\n"
}

// EnsureLinksClickable wraps bare http(s) URLs in anchors opening a new tab.
// URLs that already are an href value or an anchor text are left alone, and
// trailing punctuation stays outside the link.
func EnsureLinksClickable(content string) string {
	var (
		b    strings.Builder
		last int
	)
	for _, loc := range bareURLRegexp.FindAllStringIndex(content, -1) {
		start, end := loc[0], loc[1]
		prefix := content[:start]
		if strings.HasSuffix(prefix, `="`) || strings.HasSuffix(prefix, `='`) || insideAnchor(prefix) {
			continue
		}

		rawURL := strings.TrimRight(content[start:end], ".,;:!?)")
		if rawURL == "" {
			continue
		}

		escaped := stdhtml.EscapeString(rawURL)
		b.WriteString(content[last:start])
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, escaped, escaped)
		last = start + len(rawURL)
	}
	b.WriteString(content[last:])
	return b.String()
}

// insideAnchor reports whether prefix leaves an <a> element open.
func insideAnchor(prefix string) bool {
	open := lastMatch(anchorOpenRegexp, prefix)
	return open >= 0 && open > lastMatch(anchorCloseRegexp, prefix)
}

func lastMatch(re *regexp.Regexp, s string) int {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][0]
}

// isWebURL accepts absolute http and https URLs only, so provider data
// cannot smuggle javascript: or data: links into the page.
func isWebURL(dest string) bool {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func text(s string) ast.Node {
	return &ast.Text{Leaf: ast.Leaf{Literal: []byte(s)}}
}

// link renders title as plain text when dest is not a web URL.
func link(dest, title string) ast.Node {
	if !isWebURL(dest) {
		return text(title)
	}
	l := &ast.Link{Destination: []byte(dest)}
	ast.AppendChild(l, text(title))
	return l
}

func linkOr(dest, title, fallback string) ast.Node {
	if !isWebURL(dest) {
		return text(fallback)
	}
	return link(dest, title)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
