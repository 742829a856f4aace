package tui

import (
	"context"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/tui/themes"
)

// StatusFetcher returns the current session status.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (model.StatusRecord, error)
}

// Config holds watcher configuration.
type Config struct {
	Fetcher  StatusFetcher
	Theme    themes.Theme
	Interval time.Duration
	// ExitOnConnect ends the program once the session reports connected.
	ExitOnConnect bool
}

const defaultInterval = 2 * time.Second

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.Theme.Primary == "" {
		c.Theme = themes.Default
	}
	return c
}
