// Package web gin server
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vihaankava/nonprofit/internal/policy"
	appLog "github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search"
)

const shutdownTimeout = 10 * time.Second

// Option customises a Server.
type Option func(*Server)

// WithSearchService attaches the search service. Without one every endpoint
// answers with null or empty results.
func WithSearchService(svc *search.Service) Option {
	return func(s *Server) {
		s.svc = svc
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		if gatherer != nil {
			s.gatherer = gatherer
		}
	}
}

// WithMCPHandler mounts an MCP transport on /mcp.
func WithMCPHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.mcpHandler = handler
	}
}

// WithAllowedOrigins sets the CORS allow list, see newCORSMiddleware.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithLogger overrides the server logger.
func WithLogger(logger logSDK.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server serves the search API.
type Server struct {
	engine         *gin.Engine
	svc            *search.Service
	augmenter      *policy.Augmenter
	gatherer       prometheus.Gatherer
	mcpHandler     http.Handler
	allowedOrigins []string
	logger         logSDK.Logger
}

// NewServer builds the gin engine and registers every route.
func NewServer(opts ...Option) *Server {
	s := &Server{
		gatherer: prometheus.DefaultGatherer,
		logger:   appLog.Logger.Named("web"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	// keep a nil *search.Service from turning into a non-nil interface
	var searcher policy.Searcher
	if s.svc != nil {
		searcher = s.svc
	}
	s.augmenter = policy.NewAugmenter(searcher, policy.WithAugmenterLogger(s.logger.Named("augmenter")))

	s.engine = gin.New()
	s.engine.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(s.logger.Named("gin")),
		),
		requestID,
		newCORSMiddleware(s.allowedOrigins),
	)
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.engine.Any("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/search", s.search)
	api.GET("/search/organizations", s.searchOrganizations)
	api.GET("/search/grants", s.searchGrants)
	api.GET("/search/resources", s.searchResources)
	api.GET("/search/stats", s.stats)
	api.POST("/augment", s.augment)

	if s.mcpHandler != nil {
		s.engine.Any("/mcp", gin.WrapH(s.mcpHandler))
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on http", zap.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server exit")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}

	s.logger.Info("http server stopped")
	return nil
}
