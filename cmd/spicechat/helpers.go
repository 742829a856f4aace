package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/config"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/storage"
	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStorage opens and migrates the database.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Debug("Database ready", "path", store.Path())
	return store, nil
}

func credentialStore(cfg *config.Config, store *storage.SQLiteStorage) (service.CredentialStore, error) {
	switch cfg.Session.Store {
	case config.StoreFile:
		return storage.NewFileCredentialStore(cfg.Session.CredentialsPath)
	default:
		return store.CredentialStore(), nil
	}
}

// parseDateFlag parses an optional YYYY-MM-DD flag value in the local zone.
func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return &t, nil
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	return start, end
}
