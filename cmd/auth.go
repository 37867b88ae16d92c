package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/s0up4200/dexter/callback"
	"github.com/s0up4200/dexter/mangadex"
)

var (
	browserLogin bool
	loginTimeout time.Duration
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to MangaDex",
	Long: `Log in with the password grant using the configured credentials, or with
--browser through the authorization code flow. The refresh token is kept in
the state directory so later runs stay logged in.`,
	RunE: runLogin,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and forget the stored refresh token",
	RunE:  runLogout,
}

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user and the token lifetimes",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().BoolVar(&browserLogin, "browser", false, "log in through the browser instead of with a password")
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the browser redirect")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if browserLogin {
		if err := browserFlow(ctx); err != nil {
			return err
		}
	} else {
		creds := cfg.ClientCredentials()
		if !creds.CanLogin() {
			return fmt.Errorf("password login needs credentials.client_id, client_secret, username and password; use --browser otherwise")
		}
		logger.Info().Str("username", creds.Username).Msg("Logging in")
		if err := client.Login(ctx, creds); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("logged in but failed to fetch the user: %w", err)
	}
	fmt.Printf("✓ Logged in as %s\n", user.Attributes.Username)

	if !cfg.State.PersistToken {
		fmt.Println("  state.persist_token is off, the session ends with this run")
	}
	return nil
}

// browserFlow runs the authorization code flow through the local callback
// server.
func browserFlow(ctx context.Context) error {
	redirect, err := url.Parse(cfg.OAuth.RedirectURL)
	if err != nil || redirect.Path == "" {
		return fmt.Errorf("invalid oauth.redirect_url %q", cfg.OAuth.RedirectURL)
	}

	state, err := mangadex.NewState()
	if err != nil {
		return err
	}
	authURL, err := client.Session().AuthCodeURL(state)
	if err != nil {
		return err
	}

	srv := callback.NewServer(redirect.Path, state, logger)
	if err := srv.Start(cfg.OAuth.CallbackAddr); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop callback server")
		}
	}()

	fmt.Println("Open this URL in your browser to log in:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	code, err := srv.Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no redirect received within %s", durafmt.Parse(loginTimeout).LimitFirstN(2))
	}
	if err != nil {
		return err
	}

	if err := client.Session().ExchangeCode(ctx, code); err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := client.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("✓ Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	user, err := client.Me(ctx)
	if errors.Is(err, mangadex.ErrAuthenticationRequired) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	info := client.Session().Info()
	now := time.Now()

	fmt.Printf("User:     %s (%s)\n", user.Attributes.Username, user.ID)
	if len(user.Attributes.Roles) > 0 {
		fmt.Printf("Roles:    %s\n", strings.Join(user.Attributes.Roles, ", "))
	}
	fmt.Printf("Session:  %s\n", info.State)
	fmt.Printf("Access:   %s\n", expiresIn(info.AccessExpiry, now))
	if info.HasRefreshToken {
		fmt.Printf("Refresh:  %s\n", expiresIn(info.RefreshExpiry, now))
	}
	if info.Claims != nil && len(info.Claims.Permissions) > 0 {
		fmt.Printf("Permissions: %d granted\n", len(info.Claims.Permissions))
	}
	return nil
}

// expiresIn renders a token expiry relative to now.
func expiresIn(expiry, now time.Time) string {
	if expiry.IsZero() {
		return "unknown expiry"
	}
	d := expiry.Sub(now)
	if d <= 0 {
		return "expired " + durafmt.Parse(-d).LimitFirstN(2).String() + " ago"
	}
	return "expires in " + durafmt.Parse(d).LimitFirstN(2).String()
}
