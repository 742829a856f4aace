package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
)

// PublishStatus records a connection state change.
func (s *SQLiteStorage) PublishStatus(ctx context.Context, record model.StatusRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateStatus(record); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO connection_status (status, pairing_payload, updated_at) VALUES (?, ?, ?)`,
		string(record.Status), record.PairingPayload, record.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// LatestStatus returns the most recently published status.
func (s *SQLiteStorage) LatestStatus(ctx context.Context) (*model.StatusRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		record model.StatusRecord
		status string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status, pairing_payload, updated_at FROM connection_status ORDER BY id DESC LIMIT 1`,
	).Scan(&status, &record.PairingPayload, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}
	record.Status = model.PublishedStatus(status)
	return &record, nil
}

// PruneStatusHistory keeps only the newest keep status rows.
func (s *SQLiteStorage) PruneStatusHistory(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM connection_status WHERE id NOT IN (
			SELECT id FROM connection_status ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune status history: %w", err)
	}
	return res.RowsAffected()
}
