package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/transport"
)

// FileCredentialStore keeps the session credentials in a JSON file. Saves go
// through a temp file and a rename so a crash never leaves a torn file.
type FileCredentialStore struct {
	path string
	mu   sync.Mutex
}

// NewFileCredentialStore returns a store writing to path.
func NewFileCredentialStore(path string) (*FileCredentialStore, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	return &FileCredentialStore{path: filepath.Clean(path)}, nil
}

// Load returns the stored credentials, or empty credentials when the file is
// missing or empty.
func (f *FileCredentialStore) Load(_ context.Context) (transport.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return transport.Credentials{}, nil
	}
	if err != nil {
		return transport.Credentials{}, fmt.Errorf("failed to read credentials %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return transport.Credentials{}, nil
	}

	var creds transport.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return transport.Credentials{}, fmt.Errorf("failed to decode credentials %s: %w", f.path, err)
	}
	return creds, nil
}

// Save atomically replaces the credentials file.
func (f *FileCredentialStore) Save(_ context.Context, creds transport.Credentials) error {
	if creds.UpdatedAt.IsZero() {
		creds.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	return writeFileAtomic(f.path, data, 0600)
}

// Purge removes the credentials file.
func (f *FileCredentialStore) Purge(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to purge credentials %s: %w", f.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
