package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/episodesync/internal/trakt"
)

func newTraktCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trakt",
		Short: "Manage the trakt.tv login",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authorize episodesync with trakt.tv using the device code flow",
		Args:  cobra.NoArgs,
		RunE:  runTraktLogin,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove the saved trakt.tv token",
		Args:  cobra.NoArgs,
		RunE:  runTraktLogout,
	})

	return cmd
}

func runTraktLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	tc := cc.Cfg.Tracker

	if tc.ClientID == "" || tc.ClientSecret == "" {
		return errors.New("trakt login: set tracker.client_id and tracker.client_secret in the config file")
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	cc.Logger.Info("trakt login started", slog.String("token_file", tc.TokenFile))

	_, err := trakt.Login(ctx, traktAuthConfig(cc), func(da trakt.DeviceAuth) {
		// Always shown, even with --quiet.
		fmt.Fprintf(cc.Err, "To sign in, visit: %s\n", da.VerificationURI)
		fmt.Fprintf(cc.Err, "Enter code: %s\n", da.UserCode)
	}, cc.Logger)
	if err != nil {
		return err
	}

	cc.Statusf("Login successful.\n")

	return nil
}

func runTraktLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := trakt.Logout(cc.Cfg.Tracker.TokenFile, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out.\n")

	return nil
}
