package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/filter"
	"github.com/s0up4200/dexter/mangadex"
)

var (
	feedLimit    int
	feedSince    time.Duration
	feedLanguage []string
)

// mangaCmd represents the manga command
var mangaCmd = &cobra.Command{
	Use:   "manga <id or link>",
	Short: "Show a manga by id or mangadex.org link",
	Args:  cobra.ExactArgs(1),
	RunE:  runManga,
}

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List new chapters of the manga you follow",
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().IntVarP(&feedLimit, "limit", "n", 50, "how many chapters to list")
	feedCmd.Flags().DurationVar(&feedSince, "since", 7*24*time.Hour, "only chapters published within this window")
	feedCmd.Flags().StringSliceVarP(&feedLanguage, "language", "l", nil, "translated languages (default is mangadex.language)")

	rootCmd.AddCommand(mangaCmd)
	rootCmd.AddCommand(feedCmd)
}

// resolveMangaID accepts a bare id or a title link.
func resolveMangaID(arg string) (string, error) {
	if err := mangadex.ValidateID(arg); err == nil {
		return arg, nil
	}
	parsed, err := mangadex.ParseURL(arg)
	if err != nil {
		return "", err
	}
	if parsed.Kind != "title" {
		return "", fmt.Errorf("%s link is not a manga", parsed.Kind)
	}
	return parsed.ID, nil
}

func runManga(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := resolveMangaID(args[0])
	if err != nil {
		return err
	}

	manga, err := client.GetManga(ctx, id, "author", "artist")
	if err != nil {
		return err
	}

	var stats *mangadex.MangaStatistics
	if all, err := client.MangaStatistics(ctx, id); err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch statistics")
	} else if s, ok := all[id]; ok {
		stats = &s
	}

	info := filter.NewMangaInfo(*manga, stats, cfg.MangaDex.Language)

	fmt.Println(info.Title)
	fmt.Println(strings.Repeat("-", 80))
	if len(info.AltTitles) > 0 {
		fmt.Printf("Also known as: %s\n", strings.Join(info.AltTitles, " / "))
	}
	if len(info.Authors) > 0 {
		fmt.Printf("Authors:       %s\n", strings.Join(info.Authors, ", "))
	}
	fmt.Printf("Status:        %s\n", info.Status)
	if info.Year > 0 {
		fmt.Printf("Year:          %d\n", info.Year)
	}
	fmt.Printf("Rating:        %s\n", info.ContentRating)
	if info.Demographic != "" {
		fmt.Printf("Demographic:   %s\n", info.Demographic)
	}
	if len(info.Tags) > 0 {
		fmt.Printf("Tags:          %s\n", strings.Join(info.Tags, ", "))
	}
	if len(info.Languages) > 0 {
		fmt.Printf("Languages:     %s\n", strings.Join(info.Languages, ", "))
	}
	if stats != nil {
		fmt.Printf("Follows:       %d\n", info.Follows)
		fmt.Printf("Score:         %.2f (bayesian %.2f)\n", info.Rating, info.Bayesian)
	}
	fmt.Printf("Updated:       %s\n", info.UpdatedAt.Format("2006-01-02"))
	fmt.Printf("Link:          %s\n", mangadex.MangaURL(info.ID))

	if desc := manga.Attributes.Description.Get(cfg.MangaDex.Language); desc != "" {
		fmt.Println()
		fmt.Println(desc)
	}
	return nil
}

func runFeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	languages := feedLanguage
	if len(languages) == 0 {
		languages = []string{cfg.MangaDex.Language}
	}
	since := time.Now().Add(-feedSince)

	opts := mangadex.FeedOptions{
		ListOptions: mangadex.ListOptions{
			Includes: []string{"manga", "scanlation_group"},
			Order:    map[string]mangadex.Order{"publishAt": mangadex.OrderDescending},
		},
		TranslatedLanguage: languages,
		ContentRating:      contentRatings(),
		PublishAtSince:     &since,
	}

	chapters, err := mangadex.Paginate(ctx, feedLimit, func(ctx context.Context, offset int) (*mangadex.CollectionResponse[mangadex.ChapterAttributes], error) {
		page := opts
		page.Offset = offset
		return client.Feed(ctx, page)
	})
	if err != nil {
		return err
	}

	if len(chapters) == 0 {
		fmt.Println("No new chapters.")
		return nil
	}

	fmt.Printf("%s since %s:\n\n", plural(len(chapters), "chapter"), since.Format("2006-01-02"))
	for _, ch := range chapters {
		fmt.Printf("• %s %s  %s\n", ch.Attributes.PublishAt.Format("2006-01-02"), chapterLabel(ch), mangadex.ChapterURL(ch.ID))
	}
	return nil
}

func chapterLabel(ch mangadex.Chapter) string {
	var parts []string
	if ch.Attributes.Volume != nil && *ch.Attributes.Volume != "" {
		parts = append(parts, "Vol. "+*ch.Attributes.Volume)
	}
	if ch.Attributes.Chapter != nil && *ch.Attributes.Chapter != "" {
		parts = append(parts, "Ch. "+*ch.Attributes.Chapter)
	} else {
		parts = append(parts, "Oneshot")
	}
	if ch.Attributes.Title != nil && *ch.Attributes.Title != "" {
		parts = append(parts, *ch.Attributes.Title)
	}
	return strings.Join(parts, " ")
}
