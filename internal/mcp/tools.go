package mcp

import (
	"context"
	"strings"

	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/vihaankava/nonprofit/library/search"
)

const (
	maxToolLimit = 50

	msgNotConfigured = "web search is not configured"
	msgNoResults     = "search is unavailable or failed, continue without search results"
)

func webSearchTool() mcp.Tool {
	return mcp.NewTool(
		"web_search",
		mcp.WithDescription("Search the public web and return a normalized result set."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Plain text search query.")),
		mcp.WithString("location", mcp.Description("Optional location to focus the search on.")),
		mcp.WithNumber("count", mcp.Description("Maximum number of results to request.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func findOrganizationsTool() mcp.Tool {
	return mcp.NewTool(
		"find_local_organizations",
		mcp.WithDescription("Find nonprofits and community groups working on a cause near a location."),
		mcp.WithString("cause", mcp.Required(), mcp.Description("Cause or focus area, e.g. reading tutoring.")),
		mcp.WithString("location", mcp.Required(), mcp.Description("City or region.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of organizations, default 10.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func findGrantsTool() mcp.Tool {
	return mcp.NewTool(
		"find_grants",
		mcp.WithDescription("Find grants and funding opportunities for a cause."),
		mcp.WithString("cause", mcp.Required(), mcp.Description("Cause or focus area.")),
		mcp.WithString("location", mcp.Description("Optional city or region.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of grants, default 10.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func findResourcesTool() mcp.Tool {
	return mcp.NewTool(
		"find_resources",
		mcp.WithDescription("Find tools, platforms, guides and articles that help run a nonprofit."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic to find resources about.")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of resources, default 5.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func (s *Server) handleWebSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.searcher == nil {
		return mcp.NewToolResultError(msgNotConfigured), nil
	}

	query, errResult := requireTrimmed(req, "query")
	if errResult != nil {
		return errResult, nil
	}

	var filters search.Params
	if count := readIntArg(req, "count", 0); count > 0 {
		filters = search.Params{search.ParamCount: clampLimit(count)}
	}

	results := s.searcher.Search(ctx, query, readStringArg(req, "location"), filters)
	if results == nil {
		s.logger.Debug("web_search returned nothing", zap.Int("query_len", len(query)))
		return mcp.NewToolResultError(msgNoResults), nil
	}

	return encodeResult(s, results)
}

func (s *Server) handleFindOrganizations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.searcher == nil {
		return mcp.NewToolResultError(msgNotConfigured), nil
	}

	cause, errResult := requireTrimmed(req, "cause")
	if errResult != nil {
		return errResult, nil
	}
	location, errResult := requireTrimmed(req, "location")
	if errResult != nil {
		return errResult, nil
	}

	orgs := s.searcher.SearchLocalOrganizations(ctx, cause, location,
		clampLimit(readIntArg(req, "limit", search.DefaultOrganizationLimit)))
	return encodeResult(s, map[string]any{"organizations": orgs})
}

func (s *Server) handleFindGrants(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.searcher == nil {
		return mcp.NewToolResultError(msgNotConfigured), nil
	}

	cause, errResult := requireTrimmed(req, "cause")
	if errResult != nil {
		return errResult, nil
	}

	grants := s.searcher.SearchGrants(ctx, cause, readStringArg(req, "location"),
		clampLimit(readIntArg(req, "limit", search.DefaultGrantLimit)))
	return encodeResult(s, map[string]any{"grants": grants})
}

func (s *Server) handleFindResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.searcher == nil {
		return mcp.NewToolResultError(msgNotConfigured), nil
	}

	topic, errResult := requireTrimmed(req, "topic")
	if errResult != nil {
		return errResult, nil
	}

	resources := s.searcher.SearchResources(ctx, topic,
		clampLimit(readIntArg(req, "limit", search.DefaultResourceLimit)))
	return encodeResult(s, map[string]any{"resources": resources})
}

func encodeResult(s *Server, payload any) (*mcp.CallToolResult, error) {
	toolResult, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		s.logger.Error("encode search result", zap.Error(err))
		return mcp.NewToolResultError("failed to encode search result"), nil
	}
	return toolResult, nil
}

// requireTrimmed returns the non-empty string argument key, or a tool error result.
func requireTrimmed(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	value, err := req.RequireString(key)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", mcp.NewToolResultError(key + " cannot be empty")
	}
	return value, nil
}

// readStringArg extracts an optional string argument from the request.
func readStringArg(req mcp.CallToolRequest, key string) string {
	if raw, ok := req.Params.Arguments.(map[string]any); ok {
		if value, ok := raw[key].(string); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// readIntArg extracts an optional integer argument, def when absent.
func readIntArg(req mcp.CallToolRequest, key string, def int) int {
	raw, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return def
	}

	switch value := raw[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	}
	return def
}

func clampLimit(limit int) int {
	if limit > maxToolLimit {
		return maxToolLimit
	}
	return limit
}
