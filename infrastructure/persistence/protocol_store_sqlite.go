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

// Errors returned by protocol stores.
var (
	ErrVectorCountMismatch = errors.New("protocol and vector counts differ")
	ErrEmptyVector         = errors.New("empty embedding vector")
)

// defaultSearchLimit applies when a search carries no limit.
const defaultSearchLimit = 10

// SQLiteProtocolStore implements trial.ProtocolStore for SQLite. Embeddings
// are stored as JSON and ranked in process by cosine similarity.
type SQLiteProtocolStore struct {
	database.Repository[embeddedProtocol, SQLiteProtocolModel]
	logger *slog.Logger
}

// NewSQLiteProtocolStore creates a new SQLiteProtocolStore.
func NewSQLiteProtocolStore(db database.Database, logger *slog.Logger) *SQLiteProtocolStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteProtocolStore{
		Repository: database.NewRepository[embeddedProtocol, SQLiteProtocolModel](db, sqliteProtocolMapper{}, "protocol"),
		logger:     logger,
	}
}

// Reset drops and recreates the protocol collection.
func (s *SQLiteProtocolStore) Reset(ctx context.Context) error {
	return s.Recreate(ctx)
}

// Upsert stores protocols and vectors in a single transaction.
func (s *SQLiteProtocolStore) Upsert(ctx context.Context, protocols []trial.Protocol, vectors [][]float64) error {
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

// Search ranks stored protocols against the query vector from options.
// Conditions such as trial.WithNCTID restrict the candidates first.
func (s *SQLiteProtocolStore) Search(ctx context.Context, options ...repository.Option) ([]search.Result, error) {
	q := repository.Build(options...)
	query, ok := search.EmbeddingFrom(q)
	if !ok || len(query) == 0 {
		return []search.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var entities []SQLiteProtocolModel
	db := database.ApplyConditions(s.Database().Session(ctx), options...)
	if err := db.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("load protocols: %w", err)
	}

	documents := make(map[string]string, len(entities))
	vectors := make([]StoredVector, 0, len(entities))
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			s.logger.Warn("skipping protocol without embedding", "id", e.ID)
			continue
		}
		documents[e.ID] = e.Document
		vectors = append(vectors, NewStoredVector(e.ID, e.Embedding))
	}

	matches := TopKSimilar(query, vectors, limit)
	results := make([]search.Result, len(matches))
	for i, m := range matches {
		results[i] = search.NewResult(m.ID(), documents[m.ID()], m.Similarity())
	}
	return results, nil
}

// Count returns the number of stored protocols matching the options.
func (s *SQLiteProtocolStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.Repository.Count(ctx, options...)
}
