package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/config"
	"github.com/Veraticus/the-spice-must-chat/internal/documents"
	"github.com/Veraticus/the-spice-must-chat/internal/router"
	"github.com/Veraticus/the-spice-must-chat/internal/sender"
	"github.com/Veraticus/the-spice-must-chat/internal/server"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/session"
	"github.com/Veraticus/the-spice-must-chat/internal/sheets"
	"github.com/Veraticus/the-spice-must-chat/internal/transcription"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/Veraticus/the-spice-must-chat/internal/transport/wsbridge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const statusHistoryKeep = 1000

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the messaging session and the HTTP API",
		Long: `Connect to the messaging gateway, keep the session alive, record
transactions from inbound messages and serve the HTTP API.

On first run the session has no credentials and publishes a pairing payload;
follow it with 'spicechat watch' or GET /qr.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "HTTP listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, "Shutting down, closing the session...")
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if pruned, err := store.PruneStatusHistory(ctx, statusHistoryKeep); err != nil {
		slog.Warn("Failed to prune status history", "error", err)
	} else if pruned > 0 {
		slog.Debug("Pruned status history", "rows", pruned)
	}

	creds, err := credentialStore(cfg, store)
	if err != nil {
		return err
	}

	bridge, err := wsbridge.New(wsbridge.Config{
		URL:            cfg.Transport.URL,
		Token:          cfg.Transport.Token,
		RequestTimeout: cfg.Transport.RequestTimeout,
	})
	if err != nil {
		return err
	}

	normalizer := address.NewNormalizer(cfg.Transport.Domain)

	// The router needs the sender, which needs the manager, which delivers
	// messages to the router.
	var rt *router.Router
	mgr, err := session.New(session.Options{
		Transport:   bridge,
		Credentials: creds,
		Status:      store,
		Policy:      cfg.Session.Policy,
		OnMessages: func(ctx context.Context, msgs []transport.Message) {
			rt.HandleBatch(ctx, msgs)
		},
	})
	if err != nil {
		return err
	}

	snd := sender.New(mgr, normalizer, nil)

	rt, err = router.New(router.Config{
		Store:       store,
		Replier:     snd,
		Transcriber: newTranscriber(cfg),
		Sink:        newSheetsSink(ctx, cfg),
		Forwarder: router.NewWebhookForwarder(cfg.Router.WebhookURL, nil, service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		}, nil),
		Language:    cfg.Transcription.Language,
		Concurrency: cfg.Router.Concurrency,
	})
	if err != nil {
		return err
	}

	docs, err := newDocumentSource(cfg)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Deps{
		Session:      mgr,
		Messages:     rt,
		Sender:       snd,
		Documents:    docs,
		Transactions: store,
		Normalizer:   normalizer,
	})
	if err != nil {
		return err
	}

	slog.Info("Starting spicechat",
		"addr", cfg.Server.Addr,
		"gateway", cfg.Transport.URL,
		"credential_store", cfg.Session.Store,
		"transcription", cfg.Transcription.APIKey != "",
		"webhook", cfg.Router.WebhookURL != "",
		"documents", docs != nil,
		"sheets", cfg.Sheets != nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := mgr.Run(runCtx); err != nil {
			errs <- fmt.Errorf("session: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := srv.Run(runCtx, cfg.Server.Addr); err != nil {
			errs <- fmt.Errorf("http: %w", err)
			cancel()
		}
	}()

	wg.Wait()
	close(errs)
	var exitErr error
	for err := range errs {
		exitErr = errors.Join(exitErr, err)
	}

	rt.Wait()
	slog.Info("spicechat stopped")
	return exitErr
}

func newTranscriber(cfg *config.Config) service.Transcriber {
	if cfg.Transcription.APIKey == "" {
		slog.Warn("Transcription disabled: audio messages will get an apology reply")
		return nil
	}
	client, err := transcription.New(transcription.Config{
		BaseURL: cfg.Transcription.BaseURL,
		APIKey:  cfg.Transcription.APIKey,
		Model:   cfg.Transcription.Model,
	})
	if err != nil {
		slog.Warn("Transcription disabled", "error", err)
		return nil
	}
	return client
}

// newSheetsSink returns the spreadsheet mirror, or nil when it is not
// configured or cannot be reached. Recording never depends on it.
func newSheetsSink(ctx context.Context, cfg *config.Config) service.TransactionSink {
	if cfg.Sheets == nil {
		return nil
	}
	mirror, err := sheets.NewMirror(ctx, *cfg.Sheets, nil)
	if err != nil {
		slog.Warn("Spreadsheet mirror disabled", "error", err)
		return nil
	}
	slog.Info("Spreadsheet mirror enabled", "spreadsheet_id", mirror.SpreadsheetID())
	return mirror
}

func newDocumentSource(cfg *config.Config) (service.DocumentSource, error) {
	if cfg.Documents.URLTemplate == "" {
		return nil, nil
	}
	src, err := documents.NewTemplateSource(cfg.Documents.URLTemplate)
	if err != nil {
		return nil, err
	}
	return src, nil
}
