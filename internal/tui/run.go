package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the watcher until the user quits or ctx is canceled. It returns
// the last status seen.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) (Model, error) {
	if cfg.Fetcher == nil {
		return Model{}, fmt.Errorf("%w: status fetcher", common.ErrMissingConfig)
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(newModel(cfg), opts...)

	final, err := program.Run()
	if err != nil && ctx.Err() == nil {
		return Model{}, fmt.Errorf("watcher failed: %w", err)
	}
	m, _ := final.(Model)
	return m, nil
}
