package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/cli"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "List recorded transactions",
		Long: `List recorded transactions, newest first, with a per-context summary of
the same period. Without --from/--to the current month is shown.`,
		RunE: runTransactions,
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().String("context", "", "filter by context (home, clinic)")
	cmd.Flags().String("direction", "", "filter by direction (income, expense)")
	cmd.Flags().Int("limit", 50, "maximum transactions to list (0 for all)")
	cmd.Flags().Bool("no-summary", false, "skip the period summary")

	return cmd
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	contextFlag, _ := cmd.Flags().GetString("context")
	directionFlag, _ := cmd.Flags().GetString("direction")
	limit, _ := cmd.Flags().GetInt("limit")
	noSummary, _ := cmd.Flags().GetBool("no-summary")

	filter, err := buildFilter(fromFlag, toFlag, contextFlag, directionFlag, limit, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	txns, err := store.ListTransactions(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Transactions %s → %s",
		filter.StartDate.Format(dateLayout), filter.EndDate.Format(dateLayout))))
	_, _ = fmt.Fprintln(out, cli.RenderTransactions(txns))

	if noSummary {
		return nil
	}

	summaries, err := store.GetSummary(ctx, *filter.StartDate, *filter.EndDate)
	if err != nil {
		return fmt.Errorf("failed to summarize transactions: %w", err)
	}
	if filter.ContextTag != "" {
		summaries = filterSummaries(summaries, filter.ContextTag)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, cli.RenderSummaries(summaries))
	return nil
}

// buildFilter resolves the command flags into a filter with both dates set.
func buildFilter(from, to, contextTag, direction string, limit int, now time.Time) (service.TransactionFilter, error) {
	start, end := monthBounds(now)

	fromDate, err := parseDateFlag("from", from)
	if err != nil {
		return service.TransactionFilter{}, err
	}
	if fromDate != nil {
		start = *fromDate
	}
	toDate, err := parseDateFlag("to", to)
	if err != nil {
		return service.TransactionFilter{}, err
	}
	if toDate != nil {
		end = *toDate
	}
	if end.Before(start) {
		return service.TransactionFilter{}, fmt.Errorf("--to %s is before --from %s", end.Format(dateLayout), start.Format(dateLayout))
	}

	filter := service.TransactionFilter{StartDate: &start, EndDate: &end}

	switch tag := model.ContextTag(strings.ToUpper(contextTag)); tag {
	case "", model.ContextHome, model.ContextClinic:
		filter.ContextTag = tag
	default:
		return service.TransactionFilter{}, fmt.Errorf("--context must be home or clinic, got %q", contextTag)
	}

	switch dir := model.TransactionDirection(strings.ToLower(direction)); dir {
	case "", model.DirectionIncome, model.DirectionExpense:
		filter.Direction = dir
	default:
		return service.TransactionFilter{}, fmt.Errorf("--direction must be income or expense, got %q", direction)
	}

	if limit < 0 {
		return service.TransactionFilter{}, fmt.Errorf("--limit cannot be negative")
	}
	filter.Limit = limit
	return filter, nil
}

func filterSummaries(summaries []service.PeriodSummary, tag model.ContextTag) []service.PeriodSummary {
	out := summaries[:0]
	for _, s := range summaries {
		if s.ContextTag == tag {
			out = append(out, s)
		}
	}
	return out
}
