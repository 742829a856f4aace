package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// valuesAPI is the part of the Sheets values API the mirror writes through.
type valuesAPI interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
	Clear(ctx context.Context, spreadsheetID, rng string) error
}

type apiValues struct {
	svc *sheets.Service
}

func (a apiValues) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (a apiValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (a apiValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := a.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// Mirror appends every recorded transaction to a spreadsheet.
type Mirror struct {
	values        valuesAPI
	logger        *slog.Logger
	spreadsheetID string
	config        Config
}

var _ service.TransactionSink = (*Mirror)(nil)

// NewMirror authenticates, opens or creates the spreadsheet and makes sure
// both tabs exist.
func NewMirror(ctx context.Context, config Config, logger *slog.Logger) (*Mirror, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	m := newMirror(apiValues{svc: svc}, "", config, logger)
	id, err := m.ensureSpreadsheet(ctx, svc)
	if err != nil {
		return nil, err
	}
	m.spreadsheetID = id
	return m, nil
}

func newMirror(values valuesAPI, spreadsheetID string, config Config, logger *slog.Logger) *Mirror {
	return &Mirror{
		values:        values,
		logger:        common.LoggerOrDefault(logger).With("component", "sheets"),
		spreadsheetID: spreadsheetID,
		config:        config,
	}
}

// SpreadsheetID returns the mirrored spreadsheet.
func (m *Mirror) SpreadsheetID() string {
	return m.spreadsheetID
}

// Append adds txn as the last ledger row.
func (m *Mirror) Append(ctx context.Context, txn model.Transaction) error {
	row := NewLedgerRow(txn).Values()
	err := common.WithRetry(ctx, func() error {
		return m.values.Append(ctx, m.spreadsheetID, sheetRange(m.config.LedgerSheet, "A:J"), [][]any{row})
	}, m.retryOptions())
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", txn.ID, err)
	}
	m.logger.Debug("sheets_row_appended", "transaction_id", txn.ID)
	return nil
}

// Sync rewrites the ledger tab from txns. progress, when set, is called with
// the number of rows written after each batch.
func (m *Mirror) Sync(ctx context.Context, txns []model.Transaction, progress func(int)) error {
	if err := common.WithRetry(ctx, func() error {
		return m.values.Clear(ctx, m.spreadsheetID, sheetRange(m.config.LedgerSheet, "A:Z"))
	}, m.retryOptions()); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}

	rows := make([][]any, 0, len(txns)+1)
	rows = append(rows, LedgerHeader)
	for _, txn := range txns {
		rows = append(rows, NewLedgerRow(txn).Values())
	}

	for i := 0; i < len(rows); i += m.config.BatchSize {
		end := min(i+m.config.BatchSize, len(rows))
		batch := rows[i:end]
		rng := sheetRange(m.config.LedgerSheet, fmt.Sprintf("A%d", i+1))

		if err := common.WithRetry(ctx, func() error {
			return m.values.Update(ctx, m.spreadsheetID, rng, batch)
		}, m.retryOptions()); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		written := len(batch)
		if i == 0 {
			written-- // header
		}
		if progress != nil && written > 0 {
			progress(written)
		}
		m.logger.Debug("sheets_batch_written", "start_row", i+1, "rows", len(batch))
	}

	m.logger.Info("sheets_sync_complete", "spreadsheet_id", m.spreadsheetID, "rows", len(txns))
	return nil
}

// WriteSummary replaces the summary tab with summaries.
func (m *Mirror) WriteSummary(ctx context.Context, summaries []service.PeriodSummary) error {
	rows := make([][]any, 0, len(summaries)+1)
	rows = append(rows, SummaryHeader)
	for _, s := range summaries {
		rows = append(rows, NewSummaryRow(s).Values())
	}

	err := common.WithRetry(ctx, func() error {
		if err := m.values.Clear(ctx, m.spreadsheetID, sheetRange(m.config.SummarySheet, "A:Z")); err != nil {
			return err
		}
		return m.values.Update(ctx, m.spreadsheetID, sheetRange(m.config.SummarySheet, "A1"), rows)
	}, m.retryOptions())
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (m *Mirror) retryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  max(m.config.RetryAttempts, 1),
		InitialDelay: m.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// ensureSpreadsheet opens the configured spreadsheet, or creates one, and adds
// any missing tab with its header row.
func (m *Mirror) ensureSpreadsheet(ctx context.Context, svc *sheets.Service) (string, error) {
	wanted := map[string][]any{
		m.config.LedgerSheet:  LedgerHeader,
		m.config.SummarySheet: SummaryHeader,
	}

	if m.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    m.config.SpreadsheetName,
				TimeZone: m.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: m.config.LedgerSheet}},
				{Properties: &sheets.SheetProperties{Title: m.config.SummarySheet}},
			},
		}
		created, err := svc.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		m.logger.Info("sheets_spreadsheet_created", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
		if err := m.writeHeaders(ctx, created.SpreadsheetId, wanted); err != nil {
			return "", err
		}
		return created.SpreadsheetId, nil
	}

	existing, err := svc.Spreadsheets.Get(m.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to access spreadsheet %s: %w", m.config.SpreadsheetID, err)
	}

	missing := make(map[string][]any)
	for title, header := range wanted {
		missing[title] = header
	}
	for _, sh := range existing.Sheets {
		if sh.Properties != nil {
			delete(missing, sh.Properties.Title)
		}
	}
	if len(missing) == 0 {
		return existing.SpreadsheetId, nil
	}

	requests := make([]*sheets.Request, 0, len(missing))
	for title := range missing {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		})
	}
	if _, err := svc.Spreadsheets.BatchUpdate(existing.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("unable to add sheets: %w", err)
	}
	if err := m.writeHeaders(ctx, existing.SpreadsheetId, missing); err != nil {
		return "", err
	}
	return existing.SpreadsheetId, nil
}

func (m *Mirror) writeHeaders(ctx context.Context, spreadsheetID string, headers map[string][]any) error {
	for title, header := range headers {
		if err := m.values.Update(ctx, spreadsheetID, sheetRange(title, "A1"), [][]any{header}); err != nil {
			return fmt.Errorf("failed to write %s header: %w", title, err)
		}
	}
	return nil
}

func sheetRange(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", sheet, cells)
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
