package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vihaankava/nonprofit/internal/policy"
	"github.com/vihaankava/nonprofit/library/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var searchCMD = &cobra.Command{
	Use:   "search",
	Short: "run one search and print the result as JSON",
	Long: `Run a single search through the configured provider and cache.

Example:
  nonprofit search -q "literacy nonprofits" --location Springfield
  nonprofit search --kind grants -q "reading tutoring"`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		query, _ := flags.GetString("query")
		location, _ := flags.GetString("location")
		kind, _ := flags.GetString("kind")
		limit, _ := flags.GetInt("limit")

		svc, closer, err := buildSearchService(cmd.Context(), nil)
		if err != nil {
			return errors.WithStack(err)
		}
		defer closer()

		// keep a nil *search.Service from turning into a non-nil interface
		var searcher policy.Searcher
		if svc != nil {
			searcher = svc
		}
		return runSearch(cmd.Context(), cmd.OutOrStdout(), searcher, policy.Kind(kind), query, location, limit)
	},
}

// runSearch prints the outcome of one search of the given kind to w.
func runSearch(ctx context.Context, w io.Writer, searcher policy.Searcher,
	kind policy.Kind, query, location string, limit int) error {
	query, location = strings.TrimSpace(query), strings.TrimSpace(location)
	if query == "" {
		return errors.New("query is required")
	}
	if searcher == nil {
		return errors.New("search is not configured, check SEARCH_PROVIDER and provider credentials")
	}

	var payload any
	switch kind {
	case policy.KindGeneral, policy.KindNone:
		results := searcher.Search(ctx, query, location, nil)
		if results == nil {
			return errors.New("search returned no results, see logs for the provider error")
		}
		payload = results
	case policy.KindOrganizations:
		if location == "" {
			return errors.New("location is required to find organizations")
		}
		payload = map[string]any{"organizations": searcher.SearchLocalOrganizations(ctx, query, location, limit)}
	case policy.KindGrants:
		payload = map[string]any{"grants": searcher.SearchGrants(ctx, query, location, limit)}
	case policy.KindResources:
		payload = map[string]any{"resources": searcher.SearchResources(ctx, query, limit)}
	default:
		return errors.Errorf("unknown kind %q", kind)
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	if _, err = fmt.Fprintln(w, string(out)); err != nil {
		return errors.Wrap(err, "write result")
	}
	return nil
}

func init() {
	rootCMD.AddCommand(searchCMD)
	searchCMD.Flags().StringP("query", "q", "", "search query, or the cause for organizations and grants")
	searchCMD.Flags().String("location", "", "optional location")
	searchCMD.Flags().String("kind", string(policy.KindGeneral), "`general/organizations/grants/resources`")
	searchCMD.Flags().Int("limit", 0, "maximum records for organizations, grants and resources")
}
