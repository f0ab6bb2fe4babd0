package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/helixml/trialdex/domain/trial"
	"github.com/helixml/trialdex/internal/database"
)

// Table names.
const (
	TrialsTable    = "trials"
	ProtocolsTable = "clinical_protocols"
)

// TrialModel is the relational row for a trial.
type TrialModel struct {
	NCTID      string `gorm:"column:nct_id;primaryKey;type:text"`
	Title      string `gorm:"column:title;type:text"`
	Status     string `gorm:"column:status;type:text"`
	Phase      string `gorm:"column:phase;type:text"`
	Conditions string `gorm:"column:conditions;type:text"`
}

// TableName returns the table name.
func (TrialModel) TableName() string { return TrialsTable }

type trialMapper struct{}

func (trialMapper) ToDomain(e TrialModel) trial.Trial {
	return trial.NewTrial(e.NCTID, e.Title, e.Status, e.Phase, e.Conditions)
}

func (trialMapper) ToModel(t trial.Trial) TrialModel {
	return TrialModel{
		NCTID:      t.NCTID(),
		Title:      t.Title(),
		Status:     t.Status(),
		Phase:      t.Phase(),
		Conditions: t.Conditions(),
	}
}

// Float64Slice stores a []float64 as a JSON column in SQLite.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*f = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}
	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal([]float64(f))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// SQLiteProtocolModel is a protocol document with its embedding stored as JSON.
type SQLiteProtocolModel struct {
	ID        string       `gorm:"column:id;primaryKey;type:text"`
	NCTID     string       `gorm:"column:nct_id;type:text;index"`
	Source    string       `gorm:"column:source;type:text"`
	Document  string       `gorm:"column:document;type:text"`
	Embedding Float64Slice `gorm:"column:embedding;type:json"`
}

// TableName returns the table name.
func (SQLiteProtocolModel) TableName() string { return ProtocolsTable }

// PgProtocolModel is a protocol document with a pgvector embedding column.
type PgProtocolModel struct {
	ID        string            `gorm:"column:id;primaryKey;type:text"`
	NCTID     string            `gorm:"column:nct_id;type:text;index"`
	Source    string            `gorm:"column:source;type:text"`
	Document  string            `gorm:"column:document;type:text"`
	Embedding database.PgVector `gorm:"column:embedding;type:vector"`
}

// TableName returns the table name.
func (PgProtocolModel) TableName() string { return ProtocolsTable }

// embeddedProtocol pairs a protocol with its vector for the generic
// repository's mappers.
type embeddedProtocol struct {
	protocol trial.Protocol
	vector   []float64
}

type sqliteProtocolMapper struct{}

func (sqliteProtocolMapper) ToDomain(e SQLiteProtocolModel) embeddedProtocol {
	return embeddedProtocol{
		protocol: trial.NewProtocol(e.NCTID, e.Document),
		vector:   []float64(e.Embedding),
	}
}

func (sqliteProtocolMapper) ToModel(p embeddedProtocol) SQLiteProtocolModel {
	return SQLiteProtocolModel{
		ID:        p.protocol.ID(),
		NCTID:     p.protocol.Metadata().NCTID(),
		Source:    p.protocol.Metadata().Source(),
		Document:  p.protocol.Text(),
		Embedding: append(Float64Slice(nil), p.vector...),
	}
}

type pgProtocolMapper struct{}

func (pgProtocolMapper) ToDomain(e PgProtocolModel) embeddedProtocol {
	return embeddedProtocol{
		protocol: trial.NewProtocol(e.NCTID, e.Document),
		vector:   e.Embedding.Floats(),
	}
}

func (pgProtocolMapper) ToModel(p embeddedProtocol) PgProtocolModel {
	return PgProtocolModel{
		ID:        p.protocol.ID(),
		NCTID:     p.protocol.Metadata().NCTID(),
		Source:    p.protocol.Metadata().Source(),
		Document:  p.protocol.Text(),
		Embedding: database.NewPgVector(p.vector),
	}
}

// pairProtocols zips protocols with their vectors, keeping the last
// occurrence of each ID so one INSERT never touches a key twice.
func pairProtocols(protocols []trial.Protocol, vectors [][]float64) ([]embeddedProtocol, error) {
	if len(protocols) != len(vectors) {
		return nil, fmt.Errorf("%w: %d protocols, %d vectors", ErrVectorCountMismatch, len(protocols), len(vectors))
	}
	index := make(map[string]int, len(protocols))
	pairs := make([]embeddedProtocol, 0, len(protocols))
	for i, p := range protocols {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyVector, p.ID())
		}
		pair := embeddedProtocol{protocol: p, vector: vectors[i]}
		if at, seen := index[p.ID()]; seen {
			pairs[at] = pair
			continue
		}
		index[p.ID()] = len(pairs)
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
