package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last published session status",
		Long: `Read the most recent connection status the service published to the
database. This works whether or not the service is running; use 'watch'
to follow a running service live.`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
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

	record := model.StatusRecord{Status: model.StatusDisconnected}
	latest, err := store.LatestStatus(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read status: %w", err)
	default:
		record = *latest
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatus(record, time.Now()))
	return err
}
