package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/tidal-grabber/internal/app"
)

var (
	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Authentication management commands",
		Long: `Manage authentication for TIDAL.

Use 'auth login' to log in with your TIDAL account and save the tokens.
Use 'auth refresh' to renew an expired access token with the saved refresh token.`,
	}

	authLoginCmd = &cobra.Command{
		Use:   "login",
		Short: "Login to TIDAL and save the access and refresh tokens",
		Long: `Prints a TIDAL login address and waits for the address the browser ends up on.

The login process:
1. Open the printed https://login.tidal.com/authorize address in a browser
2. Log in with your TIDAL account
3. The browser is redirected to https://tidal.com/android/login/auth?code=...
   The page may fail to load, that is expected
4. Copy the full address from the browser and paste it into the terminal

The authorization code from that address is exchanged for tokens, which are
saved together with the account country to the configuration file.

You can then download music:
tidal-grabber https://tidal.com/browse/album/251380836`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteAuthLoginCommand(cmd.Context(), appConfig)
		},
	}

	authRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token with the saved refresh token",
		Long: `Exchanges the refresh token from the configuration file for a new access token
and saves it. Downloads refresh expired tokens automatically, this command is
useful to check that the saved credentials still work.`,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteAuthRefreshCommand(cmd.Context(), appConfig)
		},
	}
)

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRefreshCmd)

	rootCmd.AddCommand(authCmd)
}
