// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette colors.
var (
	AccentColor  = lipgloss.Color("#25D366")
	IncomeColor  = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ExpenseColor = lipgloss.Color("#FF6B6B")
	InfoColor    = lipgloss.Color("#95E1D3")
	SubtleColor  = lipgloss.Color("#666666")
)

// Styles shared by the commands.
var (
	TitleStyle       = lipgloss.NewStyle().Bold(true).Foreground(AccentColor).MarginBottom(1)
	SuccessStyle     = lipgloss.NewStyle().Foreground(IncomeColor)
	WarningStyle     = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle       = lipgloss.NewStyle().Foreground(ExpenseColor)
	InfoStyle        = lipgloss.NewStyle().Foreground(InfoColor)
	SubtleStyle      = lipgloss.NewStyle().Foreground(SubtleColor)
	BoldStyle        = lipgloss.NewStyle().Bold(true)
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	BoxStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#333")).
				Padding(1, 2)
)

// Icons.
const (
	SuccessIcon = "✓"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ChatIcon    = "💬"
	ChartIcon   = "📊"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the chat icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(ChatIcon + " " + title)
}

// RenderBox renders content under title in a rounded box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.UnsetMargins().Render(title),
		content,
	))
}
