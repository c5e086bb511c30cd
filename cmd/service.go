package cmd

import (
	"context"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search"
	"github.com/vihaankava/nonprofit/library/search/searchconfig"
)

// loadSearchConfig reads search settings from the --config file and the environment.
func loadSearchConfig() (*searchconfig.Config, error) {
	cfg, err := searchconfig.Load(gconfig.Shared.GetString("config"))
	if err != nil {
		return nil, errors.Wrap(err, "load search config")
	}
	return cfg, nil
}

// buildSearchService returns nil when search is not usable, the process keeps running without it.
// reg may be nil to skip metrics.
func buildSearchService(ctx context.Context, reg prometheus.Registerer) (*search.Service, func(), error) {
	cfg, err := loadSearchConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := []searchconfig.FactoryOption{
		searchconfig.WithLogger(log.Logger.Named("search")),
	}
	if reg != nil {
		opts = append(opts, searchconfig.WithMetrics(search.NewMetrics(reg)))
	}

	svc, closer := searchconfig.NewService(ctx, cfg, opts...)
	return svc, closer, nil
}
