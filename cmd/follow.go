package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/filter"
	"github.com/s0up4200/dexter/mangadex"
)

var (
	followLimit     int
	unattendedCount int
	followStatus    string
	followDryRun    bool
)

// followCmd represents the follow command
var followCmd = &cobra.Command{
	Use:   "follow [title]",
	Short: "Search manga and follow the ones you pick",
	Long: `Search like 'dexter search', then pick titles from the numbered list to
follow them, optionally setting a reading status at the same time.

This command helps build a library quickly by:
- Narrowing the search with the same filter expressions and presets
- Allowing interactive selection or unattended following of the top N
- Optionally setting a reading status such as plan_to_read`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	followCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	followCmd.Flags().StringSliceVarP(&searchTags, "tag", "t", nil, "only titles with these tags (names, repeatable)")
	followCmd.Flags().IntVarP(&followLimit, "limit", "n", 50, "how many titles to fetch before filtering")
	followCmd.Flags().IntVar(&unattendedCount, "unattended", 0, "run in unattended mode, following the first N matches")
	followCmd.Flags().StringVar(&followStatus, "status", "", "also set this reading status (reading, plan_to_read, ...)")
	followCmd.Flags().BoolVarP(&followDryRun, "dry-run", "d", false, "show what would be followed without changing anything")

	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	status := mangadex.ReadingStatus(followStatus)
	if followStatus != "" && !status.Valid() {
		return fmt.Errorf("invalid reading status: %s", followStatus)
	}

	expr, err := getFilterExpression(filterExpr, preset)
	if err != nil {
		return err
	}

	opts := mangadex.MangaListOptions{
		ListOptions:   mangadex.ListOptions{Includes: []string{"author", "artist"}},
		ContentRating: contentRatings(),
	}
	if len(args) == 1 {
		opts.Title = args[0]
	}
	if len(searchTags) > 0 {
		if opts.IncludedTags, err = client.Catalog().TagIDs(searchTags...); err != nil {
			return err
		}
	}

	manga, err := fetchMangaInfo(ctx, opts, followLimit)
	if err != nil {
		return err
	}
	if expr != "" {
		manager := filter.NewManager()
		compiled, err := manager.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		if manga, err = manager.Evaluate(ctx, compiled, manga); err != nil {
			return err
		}
	}

	if len(manga) == 0 {
		fmt.Println("No manga found matching the filter criteria.")
		return nil
	}

	fmt.Printf("Found %s:\n\n", plural(len(manga), "title"))
	fmt.Println(strings.Repeat("━", 85))
	fmt.Printf("%-4s %-50s %-8s %s\n", "#", "TITLE", "YEAR", "FOLLOWS")
	fmt.Println(strings.Repeat("━", 85))
	for i, m := range manga {
		fmt.Printf("%-4d %-50s %-8d %d\n", i+1, truncate(m.Title, 48), m.Year, m.Follows)
	}
	fmt.Println(strings.Repeat("━", 85))

	var selected []filter.MangaInfo
	if unattendedCount > 0 {
		selected = manga[:min(unattendedCount, len(manga))]
		fmt.Printf("\n[UNATTENDED MODE] Following %s\n", plural(len(selected), "title"))
	} else {
		fmt.Printf("\nEnter numbers to follow (comma-separated, e.g. 1,3,5) or 'all' for all [Enter to cancel]: ")
		indices, err := readSelection(os.Stdin, len(manga))
		if err != nil {
			return err
		}
		if len(indices) == 0 {
			fmt.Println("No titles selected.")
			return nil
		}
		for _, idx := range indices {
			selected = append(selected, manga[idx])
		}
	}

	if followDryRun {
		fmt.Println("[DRY RUN] Would follow:")
		for _, m := range selected {
			fmt.Printf("  - %s", m.Title)
			if status != "" {
				fmt.Printf(" [status: %s]", status)
			}
			fmt.Println()
		}
		return nil
	}

	var followed, failures int
	for _, m := range selected {
		fmt.Printf("→ Following %s... ", m.Title)
		if err := client.FollowManga(ctx, m.ID); err != nil {
			logger.Error().Err(err).Str("manga", m.ID).Msg("Failed to follow manga")
			fmt.Printf("✗ Failed: %v\n", err)
			failures++
			continue
		}
		if status != "" {
			if err := client.UpdateReadingStatus(ctx, m.ID, status); err != nil {
				logger.Error().Err(err).Str("manga", m.ID).Msg("Failed to set reading status")
				fmt.Printf("✓ Followed, ✗ status not set: %v\n", err)
				followed++
				continue
			}
		}
		fmt.Println("✓ Done")
		followed++
	}

	fmt.Printf("\n✓ Followed %s\n", plural(followed, "title"))
	if failures > 0 {
		fmt.Printf("✗ Failed to follow %s\n", plural(failures, "title"))
	}
	return nil
}

// readSelection reads one line of comma separated 1-based numbers, or "all",
// and returns the distinct 0-based indices in input order. An empty line
// selects nothing.
func readSelection(r io.Reader, n int) ([]int, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		// No input (Ctrl+D or similar)
		return nil, scanner.Err()
	}
	return parseSelection(scanner.Text(), n)
}

func parseSelection(input string, n int) ([]int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	if strings.EqualFold(input, "all") {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	var indices []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		num, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s': must be a positive integer", part)
		}
		if num < 1 || num > n {
			return nil, fmt.Errorf("invalid number %d: must be between 1 and %d", num, n)
		}

		if idx := num - 1; !seen[idx] {
			indices = append(indices, idx)
			seen[idx] = true
		}
	}
	return indices, nil
}
