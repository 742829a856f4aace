package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/spf13/cobra"
)

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session credentials",
		Long: `Purge the stored session credentials. The next 'serve' starts from
scratch and publishes a new pairing payload.

Use this after the reconnect ceiling was reached and the phone was unlinked,
or to move the session to another phone. Stop the service first.`,
		RunE: runLogout,
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	creds, err := credentialStore(cfg, store)
	if err != nil {
		return err
	}
	if err := creds.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge credentials: %w", err)
	}

	if err := store.PublishStatus(ctx, model.StatusRecord{
		Status:    model.StatusDisconnected,
		UpdatedAt: time.Now(),
	}); err != nil {
		slog.Warn("Failed to publish status", "error", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Session credentials removed"))
	return nil
}
