package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the watcher.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("💬 Session status"))
	b.WriteString("\n")

	if !m.loaded {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.theme.StatusPending.Render("contacting service..."))
		return m.theme.RoundedBox.Render(strings.TrimRight(b.String(), "\n"))
	}

	fmt.Fprintf(&b, "%s %s\n", m.statusIndicator(), m.statusStyle().Render(statusLabel(m.record.Status)))

	if m.record.Status == model.StatusWaitingQR && m.record.PairingPayload != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Subtitle.Render("Pair the phone using this payload:"))
		b.WriteString("\n")
		b.WriteString(m.theme.Code.Render(m.record.PairingPayload))
		b.WriteString("\n")
	}

	if !m.record.UpdatedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(m.theme.Subtitle.Render("changed " + m.record.UpdatedAt.Local().Format(time.TimeOnly)))
		b.WriteString("\n")
	}
	if !m.lastFetch.IsZero() {
		b.WriteString(m.theme.Subtitle.Render("polled " + m.lastFetch.Local().Format(time.TimeOnly)))
		b.WriteString("\n")
	}

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(m.theme.StatusError.Render("poll failed: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	help := lipgloss.JoinHorizontal(lipgloss.Left,
		m.keymap.Refresh.Help().Key, " ", m.keymap.Refresh.Help().Desc, " • ",
		m.keymap.Quit.Help().Key, " ", m.keymap.Quit.Help().Desc)
	b.WriteString(m.theme.Help.Render(help))

	return m.theme.RoundedBox.Render(b.String())
}

func (m Model) statusIndicator() string {
	switch m.record.Status {
	case model.StatusConnecting, model.StatusWaitingQR:
		return m.spinner.View()
	case model.StatusConnected:
		return m.theme.StatusSuccess.Render("●")
	default:
		return m.theme.StatusError.Render("●")
	}
}

func (m Model) statusStyle() lipgloss.Style {
	switch m.record.Status {
	case model.StatusConnected:
		return m.theme.StatusSuccess
	case model.StatusConnecting, model.StatusWaitingQR:
		return m.theme.StatusWarning
	default:
		return m.theme.StatusError
	}
}

func statusLabel(status model.PublishedStatus) string {
	switch status {
	case model.StatusConnected:
		return "connected"
	case model.StatusConnecting:
		return "connecting"
	case model.StatusWaitingQR:
		return "waiting for pairing"
	case model.StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
