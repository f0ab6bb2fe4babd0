package trial

import (
	"context"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/search"
)

// TrialStore persists structured trial rows.
type TrialStore interface {
	// Reset drops and recreates the trials table.
	Reset(ctx context.Context) error

	// SaveAll upserts trials by identifier in a single transaction.
	// Existing rows are replaced in full.
	SaveAll(ctx context.Context, trials []Trial) error

	// Find returns trials matching the options, in store order.
	Find(ctx context.Context, options ...repository.Option) ([]Trial, error)

	// Count returns the number of trials matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)
}

// ProtocolStore persists embedded protocol documents.
type ProtocolStore interface {
	// Reset drops and recreates the protocol collection.
	Reset(ctx context.Context) error

	// Upsert stores protocols with their vectors in a single call.
	// vectors[i] belongs to protocols[i]. An existing ID is overwritten.
	Upsert(ctx context.Context, protocols []Protocol, vectors [][]float64) error

	// Search returns the protocols nearest to the query vector supplied via
	// search.WithEmbedding, best first, honouring WithNCTID and the limit.
	Search(ctx context.Context, options ...repository.Option) ([]search.Result, error)

	// Count returns the number of stored protocols matching the options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)
}
