package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/mangadex"
)

var (
	uploadChapter   string
	uploadVolume    string
	uploadTitle     string
	uploadLanguage  string
	uploadGroups    []string
	uploadPattern   string
	uploadResume    string
	acceptTerms     bool
	abandonExisting bool
	uploadDryRun    bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <manga id or link> <directory>",
	Short: "Upload a directory of pages as a chapter",
	Long: `Upload the images in a directory as a new chapter. Pages are picked with a
glob pattern and ordered by their leading number, so 1.png, 2.png and 11.png
keep that order. The chapter is only published with --accept-terms.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadChapter, "chapter", "c", "", "chapter number (empty for a oneshot)")
	uploadCmd.Flags().StringVarP(&uploadVolume, "volume", "v", "", "volume number")
	uploadCmd.Flags().StringVarP(&uploadTitle, "title", "t", "", "chapter title")
	uploadCmd.Flags().StringVarP(&uploadLanguage, "language", "l", "", "translated language (default is upload.language)")
	uploadCmd.Flags().StringSliceVarP(&uploadGroups, "group", "g", nil, "scanlation group ids (default is upload.groups)")
	uploadCmd.Flags().StringVar(&uploadPattern, "pattern", "", "glob selecting the page files (default is upload.pattern)")
	uploadCmd.Flags().StringVar(&uploadResume, "resume", "", "continue an open upload session by id")
	uploadCmd.Flags().BoolVar(&acceptTerms, "accept-terms", false, "accept the MangaDex terms of service and publish")
	uploadCmd.Flags().BoolVar(&abandonExisting, "abandon-existing", false, "discard an open upload session before starting")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "only list the pages that would be uploaded")

	rootCmd.AddCommand(uploadCmd)
}

// pageFile is a page picked for upload.
type pageFile struct {
	Name string
	Path string
	Size datasize.ByteSize
}

// collectPages globs dir for page files, orders them and enforces the size
// limits. Page names must be unique regardless of their subdirectory.
func collectPages(dir, pattern string, maxImage, maxSession datasize.ByteSize) ([]pageFile, datasize.ByteSize, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, 0, fmt.Errorf("invalid page pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, 0, fmt.Errorf("no files in %s match %q", dir, pattern)
	}

	byName := make(map[string]string, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := path.Base(m)
		if prev, ok := byName[name]; ok {
			return nil, 0, fmt.Errorf("page %s appears twice: %s and %s", name, prev, m)
		}
		byName[name] = m
		names = append(names, name)
	}
	if err := mangadex.SortPageNames(names); err != nil {
		return nil, 0, err
	}

	var total datasize.ByteSize
	pages := make([]pageFile, 0, len(names))
	for _, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(byName[name]))
		st, err := os.Stat(p)
		if err != nil {
			return nil, 0, err
		}
		size := datasize.ByteSize(st.Size())
		if size > maxImage {
			return nil, 0, fmt.Errorf("page %s is %s, over the %s limit", name, size.HR(), maxImage.HR())
		}
		total += size
		pages = append(pages, pageFile{Name: name, Path: p, Size: size})
	}
	if total > maxSession {
		return nil, 0, fmt.Errorf("chapter is %s, over the %s session limit", total.HR(), maxSession.HR())
	}
	return pages, total, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mangaID, err := resolveMangaID(args[0])
	if err != nil {
		return err
	}
	if st, err := os.Stat(args[1]); err != nil || !st.IsDir() {
		return fmt.Errorf("%s is not a directory", args[1])
	}

	language := firstNonEmpty(uploadLanguage, cfg.Upload.Language)
	groups := uploadGroups
	if len(groups) == 0 {
		groups = cfg.Upload.Groups
	}
	pattern := firstNonEmpty(uploadPattern, cfg.Upload.Pattern)

	pages, total, err := collectPages(args[1], pattern, cfg.Upload.MaxImageSize, cfg.Upload.MaxSessionSize)
	if err != nil {
		return err
	}
	fmt.Printf("Found %s (%s)\n", plural(len(pages), "page"), total.HR())

	if uploadDryRun {
		for i, p := range pages {
			fmt.Printf("  %3d  %-24s %s\n", i+1, p.Name, p.Size.HR())
		}
		return nil
	}
	if !acceptTerms {
		return fmt.Errorf("%w, pass --accept-terms", mangadex.ErrTermsNotAccepted)
	}

	if required, err := client.ApprovalRequired(ctx, mangaID, language); err != nil {
		logger.Warn().Err(err).Msg("Could not check whether approval is required")
	} else if required {
		fmt.Println("⚠️  Uploads to this title in this language wait for moderator approval")
	}

	if abandonExisting && uploadResume == "" {
		existing, err := client.CurrentUploadSession(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			logger.Info().Str("session", existing.ID).Msg("Abandoning open upload session")
			if err := client.AbandonUpload(ctx, existing.ID); err != nil {
				return err
			}
		}
	}

	upload, err := client.BeginUpload(ctx, mangadex.UploadOptions{
		MangaID:   mangaID,
		Groups:    groups,
		SessionID: uploadResume,
	})
	var inProgress *mangadex.UploadInProgressError
	if errors.As(err, &inProgress) {
		return fmt.Errorf("%w; continue it with --resume %s or discard it with --abandon-existing", err, inProgress.SessionID)
	}
	if err != nil {
		return err
	}

	chapter, err := sendPages(ctx, upload, pages, language)
	if err != nil {
		fmt.Printf("Upload session %s left open, continue with --resume or discard with --abandon-existing\n", upload.SessionID())
		return err
	}

	fmt.Printf("✓ Published %s\n", mangadex.ChapterURL(chapter.ID))
	return nil
}

func sendPages(ctx context.Context, upload *mangadex.ChapterUpload, pages []pageFile, language string) (*mangadex.Chapter, error) {
	images := make([]mangadex.UploadImage, 0, len(pages))
	for _, p := range pages {
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, err
		}
		images = append(images, mangadex.UploadImage{Name: p.Name, Data: data})
	}

	logger.Info().Str("session", upload.SessionID()).Int("pages", len(images)).Msg("Uploading pages")

	result, err := upload.UploadImages(ctx, images)
	if err != nil {
		return nil, err
	}
	if len(result.Failed) > 0 {
		for _, e := range result.Errors {
			logger.Error().Str("detail", e.String()).Msg("Page rejected")
		}
		return nil, fmt.Errorf("%s rejected: %v", plural(len(result.Failed), "page"), result.Failed)
	}

	draft := mangadex.ChapterDraft{
		Volume:             optional(uploadVolume),
		Chapter:            optional(uploadChapter),
		Title:              optional(uploadTitle),
		TranslatedLanguage: language,
	}
	return upload.Commit(ctx, draft, acceptTerms)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
