// Package mcp exposes the search service as Model Context Protocol tools.
package mcp

import (
	"context"
	"net/http"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"

	"github.com/vihaankava/nonprofit/internal/policy"
	appLog "github.com/vihaankava/nonprofit/library/log"
)

const (
	serverName    = "nonprofit-search"
	serverVersion = "1.0.0"
)

// Server wraps the MCP server state for the HTTP transport.
type Server struct {
	handler  http.Handler
	logger   logSDK.Logger
	searcher policy.Searcher
}

// NewServer constructs a remote MCP server exposing the search tools under a single handler.
// A nil searcher is allowed: every tool then reports that search is not configured.
func NewServer(searcher policy.Searcher, logger logSDK.Logger) (*Server, error) {
	if logger == nil {
		logger = appLog.Logger
	}

	mcpServer := srv.NewMCPServer(
		serverName,
		serverVersion,
		srv.WithToolCapabilities(true),
		srv.WithInstructions("Use web_search for general queries, and find_local_organizations, "+
			"find_grants or find_resources to research a nonprofit idea."),
		srv.WithRecovery(),
		srv.WithHooks(newMCPHooks(logger.Named("mcp_hooks"))),
	)

	s := &Server{
		handler:  srv.NewStreamableHTTPServer(mcpServer),
		logger:   logger.Named("mcp"),
		searcher: searcher,
	}

	mcpServer.AddTool(webSearchTool(), s.handleWebSearch)
	mcpServer.AddTool(findOrganizationsTool(), s.handleFindOrganizations)
	mcpServer.AddTool(findGrantsTool(), s.handleFindGrants)
	mcpServer.AddTool(findResourcesTool(), s.handleFindResources)

	return s, nil
}

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func newMCPHooks(logger logSDK.Logger) *srv.Hooks {
	hooks := &srv.Hooks{}

	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		logger.Debug("mcp request received", hookLogFields(ctx, id, method)...)
	})

	hooks.AddOnSuccess(func(ctx context.Context, id any, method mcp.MCPMethod, message any, result any) {
		logger.Debug("mcp request succeeded", hookLogFields(ctx, id, method)...)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		fields := append(hookLogFields(ctx, id, method), zap.Error(err))
		logger.Error("mcp request failed", fields...)
	})

	hooks.AddOnRegisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session registered", zap.String("session_id", session.SessionID()))
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session unregistered", zap.String("session_id", session.SessionID()))
	})

	return hooks
}

func hookLogFields(ctx context.Context, id any, method mcp.MCPMethod) []zap.Field {
	fields := []zap.Field{
		zap.Any("request_id", id),
		zap.String("method", string(method)),
	}

	if session := srv.ClientSessionFromContext(ctx); session != nil {
		fields = append(fields, zap.String("session_id", session.SessionID()))
	}

	return fields
}
