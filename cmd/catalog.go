package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
)

// tagsCmd represents the tags command
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Inspect and refresh the cached tag table",
}

var tagsListCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List cached tag names, optionally fuzzy matched",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTagsList,
}

var tagsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch the tag table from MangaDex and cache it",
	RunE:  runTagsUpdate,
}

// reasonsCmd represents the reasons command
var reasonsCmd = &cobra.Command{
	Use:   "reasons",
	Short: "Manage the cached report reason tables",
}

var reasonsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch report reasons for every category and cache them (requires login)",
	RunE:  runReasonsUpdate,
}

func init() {
	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsUpdateCmd)
	reasonsCmd.AddCommand(reasonsUpdateCmd)

	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(reasonsCmd)
}

func runTagsList(cmd *cobra.Command, args []string) error {
	names := client.Catalog().TagNames()
	if len(names) == 0 {
		fmt.Println("No tags cached. Run 'dexter tags update' first.")
		return nil
	}

	if len(args) == 1 {
		names = fuzzy.FindFold(args[0], names)
		slices.Sort(names)
	}

	tags := client.Catalog().Tags()
	for _, name := range names {
		fmt.Printf("%-32s %s\n", name, tags[name])
	}
	return nil
}

func runTagsUpdate(cmd *cobra.Command, args []string) error {
	tags, err := client.UpdateTags(cmd.Context())
	if err != nil {
		return err
	}
	if err := client.Catalog().SaveTags(cfg.TagsPath()); err != nil {
		return err
	}
	fmt.Printf("✓ Cached %s in %s\n", plural(len(tags), "tag"), cfg.TagsPath())
	return nil
}

func runReasonsUpdate(cmd *cobra.Command, args []string) error {
	reasons, err := client.UpdateReportReasons(cmd.Context())
	if err != nil {
		return err
	}
	if err := client.Catalog().SaveReportReasons(cfg.ReportReasonsPath()); err != nil {
		return err
	}

	var summary []string
	for category, table := range reasons {
		summary = append(summary, fmt.Sprintf("%s: %d", category, len(table)))
	}
	slices.Sort(summary)
	fmt.Printf("✓ Cached report reasons (%s) in %s\n", strings.Join(summary, ", "), cfg.ReportReasonsPath())
	return nil
}
