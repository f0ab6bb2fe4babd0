package persistence

import (
	"context"

	"github.com/helixml/trialdex/domain/repository"
	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/internal/database"
	"gorm.io/gorm"
)

// TrialStore implements trial.TrialStore using GORM.
type TrialStore struct {
	database.Repository[trial.Trial, TrialModel]
}

// NewTrialStore creates a new TrialStore.
func NewTrialStore(db database.Database) TrialStore {
	return TrialStore{
		Repository: database.NewRepository[trial.Trial, TrialModel](db, trialMapper{}, "trial"),
	}
}

// Reset drops and recreates the trials table.
func (s TrialStore) Reset(ctx context.Context) error {
	return s.Recreate(ctx)
}

// SaveAll upserts trials in one transaction. When an identifier appears more
// than once the last occurrence wins.
func (s TrialStore) SaveAll(ctx context.Context, trials []trial.Trial) error {
	if len(trials) == 0 {
		return nil
	}
	unique := lastByNCTID(trials)
	return database.WithTransaction(ctx, s.Database(), func(tx *gorm.DB) error {
		return s.UpsertAll(tx, "nct_id", unique)
	})
}

// Find returns trials matching the options.
func (s TrialStore) Find(ctx context.Context, options ...repository.Option) ([]trial.Trial, error) {
	return s.Repository.Find(ctx, options...)
}

// Count returns the number of trials matching the options.
func (s TrialStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.Repository.Count(ctx, options...)
}

func lastByNCTID(trials []trial.Trial) []trial.Trial {
	index := make(map[string]int, len(trials))
	unique := make([]trial.Trial, 0, len(trials))
	for _, t := range trials {
		if at, seen := index[t.NCTID()]; seen {
			unique[at] = t
			continue
		}
		index[t.NCTID()] = len(unique)
		unique = append(unique, t)
	}
	return unique
}
