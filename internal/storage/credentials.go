package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// CredentialStore keeps the session credentials in a single database row.
// Every Save replaces the row inside one transaction, Purge deletes it.
type CredentialStore struct {
	db *sql.DB
}

// Load returns the stored credentials, or empty credentials when none exist.
func (c *CredentialStore) Load(ctx context.Context) (transport.Credentials, error) {
	if err := validateContext(ctx); err != nil {
		return transport.Credentials{}, err
	}

	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM session_credentials WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return transport.Credentials{}, nil
	}
	if err != nil {
		return transport.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds transport.Credentials
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return transport.Credentials{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

// Save replaces the stored credentials.
func (c *CredentialStore) Save(ctx context.Context, creds transport.Credentials) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if creds.UpdatedAt.IsZero() {
		creds.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_credentials (id, payload, updated_at) VALUES (1, ?, ?)`,
		string(payload), creds.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Purge deletes the stored credentials. Purging an empty store is not an error.
func (c *CredentialStore) Purge(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM session_credentials`); err != nil {
		return fmt.Errorf("failed to purge credentials: %w", err)
	}
	return nil
}
