package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/config"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Manage the spreadsheet mirror",
		Long:  `Authenticate with Google Sheets and backfill the spreadsheet mirror.`,
	}

	cmd.AddCommand(sheetsAuthCmd())
	cmd.AddCommand(sheetsSyncCmd())

	return cmd
}

func sheetsSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rewrite the ledger tab from the database",
		Long: `Clear the ledger tab and write every recorded transaction to it, then
refresh the summary tab for the current month. Use it after enabling the
mirror or when rows were edited by hand.`,
		RunE: runSheetsSync,
	}

	cmd.Flags().String("from", "", "only sync transactions on or after this date (YYYY-MM-DD)")

	return cmd
}

func runSheetsSync(cmd *cobra.Command, _ []string) error {
	fromFlag, _ := cmd.Flags().GetString("from")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Sheets == nil {
		return fmt.Errorf("%w: configure sheets.service_account_path or run 'spicechat sheets auth'", common.ErrMissingConfig)
	}

	from, err := parseDateFlag("from", fromFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, service.TransactionFilter{StartDate: from})
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	mirror, err := sheets.NewMirror(ctx, *cfg.Sheets, nil)
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	out := cmd.OutOrStdout()
	bar := cli.NewProgressBar(out, len(txns), "Syncing transactions...")
	if err := mirror.Sync(ctx, txns, cli.ProgressFunc(bar)); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	start, end := monthBounds(time.Now())
	summaries, err := store.GetSummary(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to summarize transactions: %w", err)
	}
	if err := mirror.WriteSummary(ctx, summaries); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Synced %d transactions to spreadsheet %s",
		len(txns), mirror.SpreadsheetID())))
	return nil
}

func sheetsAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Open your browser to authenticate with Google
2. Save the token next to the config file
3. Update your config file with the refresh token

You'll need to run this once unless you use a service account.`,
		RunE: runSheetsAuth,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")

	return cmd
}

func runSheetsAuth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")

	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		clientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		clientSecret = flagSecret
	}
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: set sheets.client_id and sheets.client_secret or use --client-id and --client-secret", common.ErrMissingConfig)
	}

	tokenFile := filepath.Join(config.DefaultConfigDir(), "sheets-token.json")
	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	token, err := sheets.Authorize(ctx, sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
	}, func(url string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Open this URL to authorize access:"))
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
		openBrowser(url)
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("sheets.client_id", clientID)
	viper.Set("sheets.client_secret", clientSecret)
	viper.Set("sheets.refresh_token", token.RefreshToken)

	if err := saveConfig(); err != nil {
		slog.Warn("Failed to update config file with refresh token", "error", err)
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Could not save the refresh token; add it to config.yaml as sheets.refresh_token"))
		return nil
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Authentication successful, the spreadsheet mirror is enabled"))
	return nil
}

func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = filepath.Join(config.DefaultConfigDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0750); err != nil {
		return err
	}

	return viper.WriteConfigAs(configFile)
}

// openBrowser tries to open the URL in the default browser.
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start() //nolint:gosec,forbidigo
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start() //nolint:gosec,forbidigo
	case "darwin":
		err = exec.Command("open", url).Start() //nolint:gosec,forbidigo
	}
	if err != nil {
		slog.Debug("Failed to open browser", "error", err)
	}
}
