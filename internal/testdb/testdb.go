// Package testdb provides a shared test database helper for fast,
// realistic testing against an in-memory SQLite database.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/infrastructure/persistence"
	"github.com/helixml/trialdex/internal/database"
)

// New creates an in-memory SQLite database with the trial and protocol
// tables created. The database is closed when the test finishes.
func New(t *testing.T) database.Database {
	t.Helper()
	return open(t, "sqlite:///:memory:")
}

// NewFile creates a SQLite database file in a temporary directory and
// returns it with its URL, for tests that reopen the same database.
func NewFile(t *testing.T) (database.Database, string) {
	t.Helper()
	url := URL(t)
	return open(t, url), url
}

// URL returns a fresh SQLite database URL inside t.TempDir.
func URL(t *testing.T) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), "trialdex.db")
}

// Stores creates an in-memory database and returns its trial and protocol stores.
func Stores(t *testing.T) (trial.TrialStore, trial.ProtocolStore) {
	t.Helper()
	db := New(t)
	return persistence.NewTrialStore(db), persistence.NewProtocolStore(db, nil)
}

func open(t *testing.T, url string) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, url)
	if err != nil {
		t.Fatalf("testdb: open database: %v", err)
	}
	if err := persistence.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("testdb: ensure schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
