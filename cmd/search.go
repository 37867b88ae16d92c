package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/filter"
	"github.com/s0up4200/dexter/mangadex"
)

var (
	filterExpr  string
	preset      string
	allPresets  bool
	searchTags  []string
	searchLimit int
	showDetails bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [title]",
	Short: "Search manga and narrow the results with a filter expression",
	Long: `Search MangaDex by title and tags, then keep the results matching a filter
expression. Expressions see fields such as Title, Status, Year, Tags,
Follows and Rating, and helpers such as hasTag("Romance") or
daysSince(UpdatedAt).

Example:
  dexter search --tag Action --filter 'Follows > 5000 && Status == "ongoing"'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	searchCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	searchCmd.Flags().BoolVar(&allPresets, "presets", false, "count matches for every preset from config")
	searchCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "only titles with these tags (names, repeatable)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 100, "how many titles to fetch before filtering")
	searchCmd.Flags().BoolVar(&showDetails, "details", false, "show tags, authors and statistics")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	expr, err := getFilterExpression(filterExpr, preset)
	if err != nil {
		return err
	}

	manager := filter.NewManager()
	presets := make(map[string]string, len(cfg.Filter.Presets))
	for name, p := range cfg.Filter.Presets {
		presets[name] = p.Expression
	}
	if err := manager.RegisterFilters(presets); err != nil {
		return err
	}

	// Compile before fetching anything so typos fail fast
	var compiled filter.CompiledFilter
	if expr != "" {
		compiled, err = manager.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	opts := mangadex.MangaListOptions{
		ListOptions: mangadex.ListOptions{
			Includes: []string{"author", "artist"},
		},
		ContentRating: contentRatings(),
	}
	if len(args) == 1 {
		opts.Title = args[0]
	}
	if len(searchTags) > 0 {
		opts.IncludedTags, err = client.Catalog().TagIDs(searchTags...)
		if err != nil {
			return err
		}
	}

	logger.Info().Str("title", opts.Title).Strs("tags", searchTags).Str("filter", expr).Msg("Searching manga")

	manga, err := fetchMangaInfo(ctx, opts, searchLimit)
	if err != nil {
		return err
	}

	if allPresets {
		return printPresetCounts(ctx, manager, manga)
	}

	if compiled != nil {
		manga, err = manager.Evaluate(ctx, compiled, manga)
		if err != nil {
			return err
		}
	}

	printManga(manga)
	return nil
}

// fetchMangaInfo pages through the search results and joins them with their
// statistics.
func fetchMangaInfo(ctx context.Context, opts mangadex.MangaListOptions, limit int) ([]filter.MangaInfo, error) {
	results, err := mangadex.Paginate(ctx, limit, func(ctx context.Context, offset int) (*mangadex.CollectionResponse[mangadex.MangaAttributes], error) {
		page := opts
		page.Offset = offset
		return client.ListManga(ctx, page)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search manga: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, m := range results {
		ids[i] = m.ID
	}
	stats, err := client.MangaStatistics(ctx, ids...)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch statistics, Follows and Rating will be zero")
	}

	manga := make([]filter.MangaInfo, len(results))
	for i, m := range results {
		var s *mangadex.MangaStatistics
		if st, ok := stats[m.ID]; ok {
			s = &st
		}
		manga[i] = filter.NewMangaInfo(m, s, cfg.MangaDex.Language)
	}
	return manga, nil
}

func printPresetCounts(ctx context.Context, manager *filter.Manager, manga []filter.MangaInfo) error {
	names := manager.ListFilters()
	if len(names) == 0 {
		fmt.Println("No presets configured.")
		return nil
	}

	results, err := manager.EvaluateAll(ctx, manga)
	if err != nil {
		return err
	}

	fmt.Printf("%-24s %s\n", "PRESET", "MATCHES")
	for _, name := range names {
		fmt.Printf("%-24s %d of %d\n", name, len(results[name]), len(manga))
	}
	return nil
}

func printManga(manga []filter.MangaInfo) {
	if len(manga) == 0 {
		fmt.Println("No manga found matching the filter criteria.")
		return
	}

	fmt.Printf("\nFound %s:\n", plural(len(manga), "title"))
	fmt.Println(strings.Repeat("━", 90))
	fmt.Printf("%-50s %-6s %-10s %8s %6s\n", "TITLE", "YEAR", "STATUS", "FOLLOWS", "RATING")
	fmt.Println(strings.Repeat("━", 90))

	for _, m := range manga {
		year := "-"
		if m.Year > 0 {
			year = fmt.Sprint(m.Year)
		}
		fmt.Printf("%-50s %-6s %-10s %8d %6.2f\n", truncate(m.Title, 48), year, m.Status, m.Follows, m.Bayesian)
		if showDetails {
			if len(m.Authors) > 0 {
				fmt.Printf("  Authors: %s\n", strings.Join(m.Authors, ", "))
			}
			if len(m.Tags) > 0 {
				fmt.Printf("  Tags: %s\n", strings.Join(m.Tags, ", "))
			}
			fmt.Printf("  %s\n", mangadex.MangaURL(m.ID))
		}
	}
	fmt.Println(strings.Repeat("━", 90))
}

func contentRatings() []mangadex.ContentRating {
	out := make([]mangadex.ContentRating, 0, len(cfg.MangaDex.ContentRatings))
	for _, r := range cfg.MangaDex.ContentRatings {
		out = append(out, mangadex.ContentRating(r))
	}
	return out
}
