// Package persistence provides database storage implementations.
package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/internal/database"
)

// NewProtocolStore returns the protocol collection suited to the database
// dialect: pgvector on PostgreSQL, in-process cosine search on SQLite.
func NewProtocolStore(db database.Database, logger *slog.Logger) trial.ProtocolStore {
	if db.IsPostgres() {
		return NewPgvectorProtocolStore(db, logger)
	}
	return NewSQLiteProtocolStore(db, logger)
}

// Reset drops and recreates every table the stores use. Ingestion runs start
// from an empty store.
func Reset(ctx context.Context, trials trial.TrialStore, protocols trial.ProtocolStore) error {
	if err := trials.Reset(ctx); err != nil {
		return fmt.Errorf("reset trials: %w", err)
	}
	if err := protocols.Reset(ctx); err != nil {
		return fmt.Errorf("reset protocols: %w", err)
	}
	return nil
}

// EnsureSchema creates any missing tables without touching existing rows.
// Serving processes call this so queries against a never-ingested database
// see empty tables instead of errors.
func EnsureSchema(ctx context.Context, db database.Database) error {
	session := db.Session(ctx)
	if db.IsPostgres() {
		if err := session.Exec(pgvCreateExtension).Error; err != nil {
			return fmt.Errorf("create vector extension: %w", err)
		}
		if err := session.AutoMigrate(&TrialModel{}, &PgProtocolModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	if err := session.AutoMigrate(&TrialModel{}, &SQLiteProtocolModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
