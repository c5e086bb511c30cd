package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vihaankava/nonprofit/internal/mcp"
	"github.com/vihaankava/nonprofit/internal/policy"
	"github.com/vihaankava/nonprofit/internal/web"
	"github.com/vihaankava/nonprofit/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `HTTP search API with the MCP endpoint mounted on /mcp`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func runAPI(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, closeSearch, err := buildSearchService(ctx, reg)
	if err != nil {
		return errors.WithStack(err)
	}
	defer closeSearch()

	// a nil *search.Service must stay a nil interface for the MCP tools
	var searcher policy.Searcher
	if svc != nil {
		searcher = svc
	} else {
		log.Logger.Warn("search is not configured, every request runs without web search")
	}

	mcpServer, err := mcp.NewServer(searcher, log.Logger.Named("mcp"))
	if err != nil {
		return errors.Wrap(err, "new mcp server")
	}

	server := web.NewServer(
		web.WithSearchService(svc),
		web.WithGatherer(reg),
		web.WithMCPHandler(mcpServer.Handler()),
		web.WithAllowedOrigins(gconfig.Shared.GetStringSlice("settings.web.allowed_origins")...),
		web.WithLogger(log.Logger.Named("web")),
	)

	return server.Run(ctx, gconfig.Shared.GetString("listen"))
}

func init() {
	rootCMD.AddCommand(apiCMD)
}
