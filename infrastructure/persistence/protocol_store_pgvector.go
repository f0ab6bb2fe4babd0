package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/search"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/internal/database"
	"gorm.io/gorm"
)

const pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

// ErrPgvectorInitializationFailed indicates the vector extension or table
// could not be created.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// PgvectorProtocolStore implements trial.ProtocolStore on PostgreSQL with
// the pgvector extension, ranking by cosine distance in the database.
type PgvectorProtocolStore struct {
	database.Repository[embeddedProtocol, PgProtocolModel]
	logger *slog.Logger
}

// NewPgvectorProtocolStore creates a new PgvectorProtocolStore.
func NewPgvectorProtocolStore(db database.Database, logger *slog.Logger) *PgvectorProtocolStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgvectorProtocolStore{
		Repository: database.NewRepository[embeddedProtocol, PgProtocolModel](db, pgProtocolMapper{}, "protocol"),
		logger:     logger,
	}
}

// Reset ensures the vector extension exists, then drops and recreates the
// protocol collection.
func (s *PgvectorProtocolStore) Reset(ctx context.Context) error {
	if err := s.Database().Session(ctx).Exec(pgvCreateExtension).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, fmt.Errorf("create extension: %w", err))
	}
	if err := s.Recreate(ctx); err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, err)
	}
	return nil
}

// Upsert stores protocols and vectors in a single transaction.
func (s *PgvectorProtocolStore) Upsert(ctx context.Context, protocols []trial.Protocol, vectors [][]float64) error {
	pairs, err := pairProtocols(protocols, vectors)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	return database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		return s.UpsertAll(tx, "id", pairs)
	})
}

// Search returns the protocols nearest to the query vector by cosine distance.
func (s *PgvectorProtocolStore) Search(ctx context.Context, options ...repository.Option) ([]search.Result, error) {
	q := repository.Build(options...)
	query, ok := search.EmbeddingFrom(q)
	if !ok || len(query) == 0 {
		return []search.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	tx := s.Database().Session(ctx).
		Table(ProtocolsTable).
		Select("id, document, embedding <=> ? AS distance", database.NewPgVector(query))
	tx = database.ApplyConditions(tx, options...)
	tx = tx.Order("distance ASC").Limit(limit)

	var rows []struct {
		ID       string  `gorm:"column:id"`
		Document string  `gorm:"column:document"`
		Distance float64 `gorm:"column:distance"`
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search protocols: %w", err)
	}

	results := make([]search.Result, len(rows))
	for i, row := range rows {
		// Cosine distance is 1 - cosine similarity.
		results[i] = search.NewResult(row.ID, row.Document, 1.0-row.Distance)
	}
	return results, nil
}

// Count returns the number of stored protocols matching the options.
func (s *PgvectorProtocolStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.Repository.Count(ctx, options...)
}
