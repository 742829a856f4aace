package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/charmbracelet/lipgloss"
)

// StatusStyle returns the style for a published session status.
func StatusStyle(status model.PublishedStatus) lipgloss.Style {
	switch status {
	case model.StatusConnected:
		return SuccessStyle
	case model.StatusWaitingQR, model.StatusConnecting:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderStatus renders a status record as a boxed summary.
func RenderStatus(record model.StatusRecord, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Status:"),
		StatusStyle(record.Status).Render(string(record.Status)))
	if !record.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "%s %s (%s ago)\n", BoldStyle.Render("Updated:"),
			record.UpdatedAt.Local().Format(time.DateTime),
			now.Sub(record.UpdatedAt).Round(time.Second))
	}
	if record.Status == model.StatusWaitingQR && record.PairingPayload != "" {
		fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Pairing:"), SubtleStyle.Render(record.PairingPayload))
	}
	return RenderBox(ChatIcon+" Session", strings.TrimRight(b.String(), "\n"))
}

// RenderTransactions renders transactions as an aligned table.
func RenderTransactions(txns []model.Transaction) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions recorded.")
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-10s  %-8s  %12s  %-7s  %-14s  %s",
		"DATE", "TYPE", "AMOUNT", "CONTEXT", "CATEGORY", "DESCRIPTION")))
	b.WriteString("\n")

	for _, txn := range txns {
		amount := txn.Amount.StringFixed(2)
		style := ErrorStyle
		if txn.IsIncome() {
			style = SuccessStyle
		}
		fmt.Fprintf(&b, "%-10s  %-8s  %s  %-7s  %-14s  %s\n",
			txn.OccurredOn.Format("2006-01-02"),
			txn.Direction,
			style.Render(fmt.Sprintf("%12s", amount)),
			txn.ContextTag,
			truncate(txn.Category, 14),
			txn.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSummaries renders per-context period totals.
func RenderSummaries(summaries []service.PeriodSummary) string {
	if len(summaries) == 0 {
		return SubtleStyle.Render("Nothing to summarize.")
	}

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "%s  %s %s  %s %s  %s %s  (%d)\n",
			BoldStyle.Render(fmt.Sprintf("%-6s", s.ContextTag)),
			SubtleStyle.Render("income"), SuccessStyle.Render(s.Income.StringFixed(2)),
			SubtleStyle.Render("expenses"), ErrorStyle.Render(s.Expenses.StringFixed(2)),
			SubtleStyle.Render("net"), s.Net.StringFixed(2),
			s.Count)
	}
	return RenderBox(ChartIcon+" Summary", strings.TrimRight(b.String(), "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
