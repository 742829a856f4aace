// Package testutil provides test helpers shared across packages: an in-memory
// migrated database and a fluent builder for transaction fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustSave(testutil.NewTransaction().Expense("50.00").Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Transactions   []model.Transaction
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	for i := range opts.Transactions {
		db.MustSave(opts.Transactions[i])
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}

// MustSave stores txn or fails the test.
func (db *TestDB) MustSave(txn model.Transaction) *model.Transaction {
	db.t.Helper()
	if err := db.Storage.SaveTransaction(context.Background(), &txn); err != nil {
		db.t.Fatalf("failed to seed transaction %q: %v", txn.ID, err)
	}
	return &txn
}

// Count returns the number of stored transactions.
func (db *TestDB) Count() int {
	db.t.Helper()
	var n int
	if err := db.Storage.DB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
