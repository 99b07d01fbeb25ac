package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TSLeslie/recall/internal/index"
	"github.com/TSLeslie/recall/internal/store"
	"github.com/TSLeslie/recall/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over indexed documents",
		Long: `Search document bodies and summaries, ranked by relevance.

Examples:
  recall search "quarterly planning"
  recall search deadline --limit 5
  recall search "incident review" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			hits, err := a.index.Search(query)
			if err != nil {
				return err
			}
			if opts.limit > 0 && len(hits) > opts.limit {
				hits = hits[:opts.limit]
			}

			return renderHits(cmd, hits, opts.format)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// filterOptions holds CLI flags for metadata filtering.
type filterOptions struct {
	source string
	from   string
	to     string
	tags   []string
	limit  int
	format string
}

func newFilterCmd() *cobra.Command {
	var opts filterOptions

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List documents by source, date range, or tags",
		Long: `Filter documents by metadata, newest first. All given constraints
must match; with no constraints, every document is listed.

Dates are calendar days in YYYY-MM-DD form and are inclusive.

Examples:
  recall filter --source zoom
  recall filter --from 2026-08-01 --to 2026-08-31
  recall filter --tags infra,oncall --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fopts, err := buildFilterOptions(opts)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			hits, err := a.index.Filter(fopts)
			if err != nil {
				return err
			}
			if opts.limit > 0 && len(hits) > opts.limit {
				hits = hits[:opts.limit]
			}

			return renderHits(cmd, hits, opts.format)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Filter by source: zoom, youtube, microphone, system, note")
	cmd.Flags().StringVar(&opts.from, "from", "", "Earliest creation date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Latest creation date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "Require all listed tags")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = unlimited)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// buildFilterOptions validates flag values into index filter options.
func buildFilterOptions(opts filterOptions) (index.FilterOptions, error) {
	var fopts index.FilterOptions

	if opts.source != "" {
		source, err := store.ParseSource(opts.source)
		if err != nil {
			return fopts, err
		}
		fopts.Source = source
	}

	if opts.from != "" {
		t, err := time.Parse("2006-01-02", opts.from)
		if err != nil {
			return fopts, fmt.Errorf("invalid --from date %q, want YYYY-MM-DD", opts.from)
		}
		fopts.StartDate = &t
	}

	if opts.to != "" {
		t, err := time.Parse("2006-01-02", opts.to)
		if err != nil {
			return fopts, fmt.Errorf("invalid --to date %q, want YYYY-MM-DD", opts.to)
		}
		fopts.EndDate = &t
	}

	fopts.Tags = opts.tags
	return fopts, nil
}

// renderHits writes results in the requested format.
func renderHits(cmd *cobra.Command, hits []index.Hit, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	case "text":
		ui.NewPrinter(cmd.OutOrStdout()).Hits(hits)
		return nil
	default:
		return fmt.Errorf("unknown format %q, want text or json", format)
	}
}
