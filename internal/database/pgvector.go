package database

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// PgVector is a float64 slice stored in a pgvector VECTOR column. It
// round-trips through the text form "[1,2.5,3]".
type PgVector struct {
	floats []float64
}

// NewPgVector creates a PgVector holding a copy of floats.
func NewPgVector(floats []float64) PgVector {
	return PgVector{floats: append([]float64(nil), floats...)}
}

// Floats returns a copy of the vector, or nil for a NULL column.
func (v PgVector) Floats() []float64 {
	if v.floats == nil {
		return nil
	}
	return append([]float64{}, v.floats...)
}

// Dimension returns the number of elements in the vector.
func (v PgVector) Dimension() int {
	return len(v.floats)
}

// Scan implements sql.Scanner.
func (v *PgVector) Scan(value any) error {
	var raw string
	switch val := value.(type) {
	case nil:
		v.floats = nil
		return nil
	case string:
		raw = val
	case []byte:
		raw = string(val)
	default:
		return fmt.Errorf("cannot scan %T into PgVector", value)
	}

	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	if strings.TrimSpace(raw) == "" {
		v.floats = []float64{}
		return nil
	}

	parts := strings.Split(raw, ",")
	floats := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("parse vector element %d: %w", i, err)
		}
		floats[i] = f
	}
	v.floats = floats
	return nil
}

// Value implements driver.Valuer.
func (v PgVector) Value() (driver.Value, error) {
	return v.String(), nil
}

// String returns the pgvector literal.
func (v PgVector) String() string {
	parts := make([]string, len(v.floats))
	for i, f := range v.floats {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// GormDataType names the column type used by migrations.
func (PgVector) GormDataType() string {
	return "vector"
}
