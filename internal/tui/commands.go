package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const fetchTimeout = 5 * time.Second

func (m Model) fetchStatus() tea.Cmd {
	fetcher := m.config.Fetcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		record, err := fetcher.FetchStatus(ctx)
		return statusMsg{record: record, err: err, at: time.Now()}
	}
}

func (m Model) tick(seq int) tea.Cmd {
	return tea.Tick(m.config.Interval, func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}
