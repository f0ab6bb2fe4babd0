package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixml/trialdex/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound indicates the requested entity was not found.
var ErrNotFound = errors.New("entity not found")

// DefaultBatchSize is the number of rows written per INSERT statement.
const DefaultBatchSize = 100

// EntityMapper defines the interface for mapping between domain and database model types.
type EntityMapper[D any, E any] interface {
	ToDomain(entity E) D
	ToModel(domain D) E
}

// Repository provides generic persistence operations for database entities
// using repository.Option-based queries.
type Repository[D any, E any] struct {
	db     Database
	mapper EntityMapper[D, E]
	label  string
}

// NewRepository creates a new Repository.
func NewRepository[D any, E any](db Database, mapper EntityMapper[D, E], label string) Repository[D, E] {
	return Repository[D, E]{
		db:     db,
		mapper: mapper,
		label:  label,
	}
}

// Find retrieves entities matching the given options.
func (r Repository[D, E]) Find(ctx context.Context, options ...repository.Option) ([]D, error) {
	var entities []E
	db := ApplyOptions(r.db.Session(ctx).Model(new(E)), options...)
	if err := db.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", r.label, err)
	}

	domains := make([]D, len(entities))
	for i, entity := range entities {
		domains[i] = r.mapper.ToDomain(entity)
	}
	return domains, nil
}

// FindOne retrieves a single entity matching the given options.
func (r Repository[D, E]) FindOne(ctx context.Context, options ...repository.Option) (D, error) {
	var entity E
	var zero D
	db := ApplyOptions(r.db.Session(ctx), options...)
	if err := db.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, r.label)
		}
		return zero, fmt.Errorf("find one %s: %w", r.label, err)
	}
	return r.mapper.ToDomain(entity), nil
}

// Count returns the number of entities matching the given options.
func (r Repository[D, E]) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	db := ApplyConditions(r.db.Session(ctx).Model(new(E)), options...)
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.label, err)
	}
	return count, nil
}

// DeleteBy removes entities matching the given options.
func (r Repository[D, E]) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := ApplyConditions(r.db.Session(ctx), options...)
	if err := db.Delete(new(E)).Error; err != nil {
		return fmt.Errorf("delete %s: %w", r.label, err)
	}
	return nil
}

// UpsertAll writes domains through tx, replacing every column of rows whose
// key column already exists. Callers deduplicate keys beforehand: a single
// INSERT cannot touch the same key twice on PostgreSQL.
func (r Repository[D, E]) UpsertAll(tx *gorm.DB, key string, domains []D) error {
	if len(domains) == 0 {
		return nil
	}
	entities := make([]E, len(domains))
	for i, d := range domains {
		entities[i] = r.mapper.ToModel(d)
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		UpdateAll: true,
	}).CreateInBatches(entities, DefaultBatchSize)
	if result.Error != nil {
		return fmt.Errorf("upsert %s: %w", r.label, result.Error)
	}
	return nil
}

// Recreate drops and recreates the entity's table.
func (r Repository[D, E]) Recreate(ctx context.Context) error {
	migrator := r.db.Session(ctx).Migrator()
	if err := migrator.DropTable(new(E)); err != nil {
		return fmt.Errorf("drop %s table: %w", r.label, err)
	}
	if err := migrator.CreateTable(new(E)); err != nil {
		return fmt.Errorf("create %s table: %w", r.label, err)
	}
	return nil
}

// Database returns the database the repository writes to.
func (r Repository[D, E]) Database() Database {
	return r.db
}
