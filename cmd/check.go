package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vihaankava/nonprofit/library/log"
	"github.com/vihaankava/nonprofit/library/search/searchconfig"
)

var checkCMD = &cobra.Command{
	Use:   "check",
	Short: "print the effective search configuration",
	Long: `Print the effective search settings, credentials omitted,
and whether they are usable. Exits with an error when they are not.`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSearchConfig()
		if err != nil {
			return errors.WithStack(err)
		}

		valid := cfg.Validate(log.Logger.Named("check"))
		fmt.Fprintln(cmd.OutOrStdout(), renderSearchReport(cfg.ProviderInfo(), valid))
		if !valid {
			return errors.Errorf("search configuration for provider %q is not usable", cfg.Provider)
		}
		return nil
	},
}

// renderSearchReport formats the non-secret settings as a boxed table.
func renderSearchReport(info searchconfig.ProviderInfo, valid bool) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}

	status := successStyle.Render("usable")
	switch {
	case !valid:
		status = errorStyle.Render("invalid, search disabled")
	case !info.Enabled || info.Provider == searchconfig.ProviderNone:
		status = valueStyle.Render("disabled")
	}

	rows := lipgloss.JoinVertical(lipgloss.Left,
		row("provider", info.Provider),
		row("enabled", strconv.FormatBool(info.Enabled)),
		row("cache backend", info.CacheBackend),
		row("cache ttl", fmt.Sprintf("%ds", info.CacheTTL)),
		row("cache max size", strconv.Itoa(info.CacheMaxSize)),
		row("timeout", fmt.Sprintf("%ds", info.Timeout)),
		row("max results", strconv.Itoa(info.MaxResults)),
		row("retries", strconv.Itoa(info.RetryAttempts)),
		row("rate limit", strconv.FormatFloat(info.RateLimit, 'f', -1, 64)+"/s"),
		row("status", status),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("search configuration"),
		boxStyle.Render(rows),
	)
}

func init() {
	rootCMD.AddCommand(checkCMD)
}
