package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/config"
	"github.com/s0up4200/dexter/mangadex"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.New(os.Stderr).With().Timestamp().Logger()
	client  *mangadex.Client

	// Command flags
	devAPI bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dexter",
	Short: "A command line client for the MangaDex API",
	Long: `dexter talks to the MangaDex API: search titles with filter expressions,
follow your feed, keep the tag and report reason tables up to date and
upload chapters.

Credentials come from the config file, a .env file or DEXTER_* environment
variables. Without them only public endpoints are available.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.dexter/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&devAPI, "dev", false, "use the MangaDex sandbox API")
}

// initializeApp initializes the configuration and the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	// Override the sandbox setting from command line if specified
	if cmd.Flags().Changed("dev") {
		cfg.MangaDex.Dev = devAPI
	}

	client, err = newClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MangaDex client: %w", err)
	}

	return nil
}

// newClient builds a client from the configuration, seeding the catalog from
// the cached tables in the state directory.
func newClient(cfg *config.Config, logger zerolog.Logger) (*mangadex.Client, error) {
	catalog := mangadex.NewCatalog()
	if err := catalog.LoadTags(cfg.TagsPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Ignoring unreadable tag cache, run 'dexter tags update'")
	}
	if err := catalog.LoadReportReasons(cfg.ReportReasonsPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Ignoring unreadable report reason cache, run 'dexter reasons update'")
	}

	opts := []mangadex.Option{
		mangadex.WithTimeout(cfg.MangaDex.Timeout),
		mangadex.WithClockSkew(cfg.MangaDex.ClockSkew),
		mangadex.WithRetryPolicy(cfg.RetryPolicy()),
		mangadex.WithUserAgent(cfg.MangaDex.UserAgent),
		mangadex.WithRedirectURL(cfg.OAuth.RedirectURL),
		mangadex.WithCatalog(catalog),
	}
	if cfg.MangaDex.Dev {
		opts = append(opts, mangadex.WithDevAPI())
	}
	if cfg.MangaDex.APIURL != "" {
		opts = append(opts, mangadex.WithBaseURL(cfg.MangaDex.APIURL))
	}
	if cfg.MangaDex.AuthURL != "" {
		opts = append(opts, mangadex.WithAuthURL(cfg.MangaDex.AuthURL))
	}
	if cfg.State.PersistToken {
		opts = append(opts, mangadex.WithTokenStore(mangadex.NewFileTokenStore(cfg.TokenPath())))
	}

	return mangadex.NewClient(cfg.ClientCredentials(), logger, opts...)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, without colour when stderr is redirected
	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// getFilterExpression determines the filter expression to use
func getFilterExpression(filterExpr, preset string) (string, error) {
	// Priority: command line filter > preset > default
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if presetFilter, ok := cfg.Filter.Presets[preset]; ok {
			return presetFilter.Expression, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return cfg.Filter.DefaultExpression, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
