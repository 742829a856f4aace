// Package tui implements the terminal watcher that follows a running
// service's session status and shows the pairing payload while it waits.
package tui

import (
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/tui/themes"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the watcher state.
type Model struct {
	lastFetch time.Time
	lastErr   error
	theme     themes.Theme
	keymap    KeyMap
	record    model.StatusRecord
	spinner   spinner.Model
	config    Config
	seq       int
	loaded    bool
	fetching  bool
	quitting  bool
}

func newModel(cfg Config) Model {
	cfg = cfg.withDefaults()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(cfg.Theme.Primary)

	return Model{
		config:   cfg,
		theme:    cfg.Theme,
		keymap:   DefaultKeyMap(),
		spinner:  s,
		fetching: true,
	}
}

// Init starts the spinner and the first poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchStatus())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Refresh):
			if m.fetching {
				return m, nil
			}
			m.fetching = true
			return m, m.fetchStatus()
		}
		return m, nil

	case statusMsg:
		m.fetching = false
		m.loaded = true
		m.lastFetch = msg.at
		m.lastErr = msg.err
		if msg.err == nil {
			m.record = msg.record
		}
		if m.config.ExitOnConnect && msg.err == nil && msg.record.Status == model.StatusConnected {
			m.quitting = true
			return m, tea.Quit
		}
		m.seq++
		return m, m.tick(m.seq)

	case tickMsg:
		if msg.seq != m.seq || m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.fetchStatus()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Record returns the last successfully fetched status.
func (m Model) Record() model.StatusRecord {
	return m.record
}
