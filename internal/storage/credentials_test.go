package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/Veraticus/the-spice-must-chat/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCredentials(marker string) transport.Credentials {
	return transport.Credentials{
		Creds: json.RawMessage(`{"me":{"id":"` + marker + `"}}`),
		Keys: map[string]json.RawMessage{
			"pre-key-1": json.RawMessage(`{"private":"abc"}`),
		},
	}
}

// Both implementations satisfy the same contract.
func credentialStores(t *testing.T) map[string]service.CredentialStore {
	t.Helper()

	fileStore, err := NewFileCredentialStore(filepath.Join(t.TempDir(), "auth", "creds.json"))
	require.NoError(t, err)

	return map[string]service.CredentialStore{
		"sqlite": createTestStorage(t).CredentialStore(),
		"file":   fileStore,
	}
}

func TestCredentialStores(t *testing.T) {
	for name, store := range credentialStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, empty.IsEmpty())

			require.NoError(t, store.Save(ctx, sampleCredentials("first")))
			require.NoError(t, store.Save(ctx, sampleCredentials("second")))

			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			assert.False(t, loaded.IsEmpty())
			assert.JSONEq(t, `{"me":{"id":"second"}}`, string(loaded.Creds))
			assert.Contains(t, loaded.Keys, "pre-key-1")
			assert.False(t, loaded.UpdatedAt.IsZero())

			require.NoError(t, store.Purge(ctx))
			purged, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, purged.IsEmpty())

			// Purging twice is fine.
			require.NoError(t, store.Purge(ctx))
		})
	}
}

func TestFileCredentialStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileCredentialStore(filepath.Join(dir, "creds.json"))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, sampleCredentials("x")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "creds.json", entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, "creds.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileCredentialStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewFileCredentialStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.Error(t, err)
}
