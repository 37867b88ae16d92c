package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/common-nighthawk/go-figure"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/mangadex"
)

const repository = "s0up4200/dexter"

var (
	appVersion = "dev"
	buildTime  = "unknown"

	checkOnly bool
)

// SetVersion records the build information and reports it in the user agent.
func SetVersion(version, built string) {
	appVersion = version
	buildTime = built
	mangadex.Version = version
}

// skipInit replaces the root pre-run for commands that need no config or client.
func skipInit(cmd *cobra.Command, args []string) error {
	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: skipInit,
	Run: func(cmd *cobra.Command, args []string) {
		figure.NewFigure("dexter", "", true).Print()
		fmt.Println()
		fmt.Printf("Version:    %s\n", appVersion)
		fmt.Printf("Built:      %s\n", buildTime)
		fmt.Printf("Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("User agent: %s\n", mangadex.DefaultUserAgent())
	},
}

// selfUpdateCmd represents the self-update command
var selfUpdateCmd = &cobra.Command{
	Use:               "self-update",
	Short:             "Replace this binary with the latest GitHub release",
	PersistentPreRunE: skipInit,
	RunE:              runSelfUpdate,
}

func init() {
	selfUpdateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(selfUpdateCmd)
}

// needsUpdate compares the running version with a release version. Builds
// without a release version cannot be compared.
func needsUpdate(current, latest string) (bool, error) {
	cur, err := semver.ParseTolerant(current)
	if err != nil {
		return false, fmt.Errorf("running a development build (%s), self-update needs a released version", current)
	}
	lat, err := semver.ParseTolerant(latest)
	if err != nil {
		return false, fmt.Errorf("invalid release version %q: %w", latest, err)
	}
	return lat.GT(cur), nil
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repository))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return errors.New("no release found for " + runtime.GOOS + "/" + runtime.GOARCH)
	}

	update, err := needsUpdate(appVersion, latest.Version())
	if err != nil {
		return err
	}
	if !update {
		fmt.Printf("✓ dexter %s is up to date\n", appVersion)
		return nil
	}
	if checkOnly {
		fmt.Printf("dexter %s is available (running %s)\n", latest.Version(), appVersion)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Printf("→ Updating to %s... ", latest.Version())
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		fmt.Println("✗ Failed")
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}
	fmt.Println("✓ Done")
	return nil
}
