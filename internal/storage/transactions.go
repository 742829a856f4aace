package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, hash, message_id, source, sender_name, amount, direction,
	description, category, context_tag, occurred_on, created_at`

// SaveTransaction inserts a single transaction. A second record for the same
// message ID or hash fails with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (
				id, hash, message_id, source, sender_name, amount, direction,
				description, category, context_tag, occurred_on, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID,
			txn.Hash,
			txn.MessageID,
			txn.Source,
			txn.SenderName,
			txn.Amount.StringFixed(2),
			string(txn.Direction),
			txn.Description,
			txn.Category,
			string(txn.ContextTag),
			txn.OccurredOn.UTC(),
			txn.CreatedAt.UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
			}
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		return nil
	})
}

// GetTransactionByID retrieves a single transaction by its ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// GetTransactionByMessageID retrieves the transaction created from a chat message.
func (s *SQLiteStorage) GetTransactionByMessageID(ctx context.Context, messageID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(messageID, "messageID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE message_id = ?`, messageID)
	return scanTransaction(row)
}

// ListTransactions returns transactions matching filter, newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	var (
		where []string
		args  []any
	)
	if filter.StartDate != nil {
		where = append(where, "occurred_on >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "occurred_on <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, string(filter.Direction))
	}
	if filter.ContextTag != "" {
		where = append(where, "context_tag = ?")
		args = append(args, string(filter.ContextTag))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_on DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// GetSummary aggregates income and expenses per context tag over [start, end].
func (s *SQLiteStorage) GetSummary(ctx context.Context, start, end time.Time) ([]service.PeriodSummary, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, end, start)
	}

	transactions, err := s.ListTransactions(ctx, service.TransactionFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, err
	}

	byTag := map[model.ContextTag]*service.PeriodSummary{}
	order := []model.ContextTag{model.ContextHome, model.ContextClinic}
	for _, tag := range order {
		byTag[tag] = &service.PeriodSummary{Start: start, End: end, ContextTag: tag}
	}

	for _, txn := range transactions {
		summary, ok := byTag[txn.ContextTag]
		if !ok {
			continue
		}
		summary.Count++
		if txn.IsIncome() {
			summary.Income = summary.Income.Add(txn.Amount)
		} else {
			summary.Expenses = summary.Expenses.Add(txn.Amount)
		}
	}

	summaries := make([]service.PeriodSummary, 0, len(order))
	for _, tag := range order {
		summary := byTag[tag]
		summary.Net = summary.Income.Sub(summary.Expenses)
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn       model.Transaction
		amount    string
		direction string
		tag       string
		createdAt sql.NullTime
	)

	err := row.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.MessageID,
		&txn.Source,
		&txn.SenderName,
		&amount,
		&direction,
		&txn.Description,
		&txn.Category,
		&tag,
		&txn.OccurredOn,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", common.ErrDatabaseCorrupted, amount, err)
	}
	txn.Direction = model.TransactionDirection(direction)
	txn.ContextTag = model.ContextTag(tag)
	if createdAt.Valid {
		txn.CreatedAt = createdAt.Time
	}
	return &txn, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
