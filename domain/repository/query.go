// Package repository provides the store-agnostic query options shared by all
// persistence adapters.
package repository

import (
	"fmt"
	"strings"
)

// Option applies a modification to a Query.
type Option func(Query) Query

// Query holds conditions, ordering, and pagination for store lookups.
type Query struct {
	conditions []Condition
	orders     []Order
	limit      int
	offset     int
	params     map[string]any
}

// Build creates a Query from a set of options.
func Build(options ...Option) Query {
	q := Query{}
	for _, opt := range options {
		q = opt(q)
	}
	return q
}

// Conditions returns the query conditions.
func (q Query) Conditions() []Condition {
	result := make([]Condition, len(q.conditions))
	copy(result, q.conditions)
	return result
}

// Orders returns the query ordering specifications.
func (q Query) Orders() []Order {
	result := make([]Order, len(q.orders))
	copy(result, q.orders)
	return result
}

// LimitValue returns the limit (0 means no limit).
func (q Query) LimitValue() int {
	return q.limit
}

// OffsetValue returns the offset.
func (q Query) OffsetValue() int {
	return q.offset
}

// Param retrieves a parameter by key.
func (q Query) Param(key string) (any, bool) {
	if q.params == nil {
		return nil, false
	}
	v, ok := q.params[key]
	return v, ok
}

// ConditionKind distinguishes how a condition compares its value.
type ConditionKind int

// ConditionKind values.
const (
	KindEqual ConditionKind = iota
	KindIn
	KindContainsAny
)

// Condition represents a single query condition.
type Condition struct {
	kind   ConditionKind
	field  string
	fields []string
	value  any
}

// Kind returns how the condition compares its value.
func (c Condition) Kind() ConditionKind { return c.kind }

// Field returns the condition field name. Empty for KindContainsAny.
func (c Condition) Field() string { return c.field }

// Fields returns the fields searched by a KindContainsAny condition.
func (c Condition) Fields() []string {
	result := make([]string, len(c.fields))
	copy(result, c.fields)
	return result
}

// Value returns the condition value.
func (c Condition) Value() any { return c.value }

// In returns true if this is an IN condition (value is a slice).
func (c Condition) In() bool { return c.kind == KindIn }

// String returns a readable representation.
func (c Condition) String() string {
	switch c.kind {
	case KindIn:
		return fmt.Sprintf("%s IN %v", c.field, c.value)
	case KindContainsAny:
		return fmt.Sprintf("any(%s) CONTAINS %v", strings.Join(c.fields, ", "), c.value)
	default:
		return fmt.Sprintf("%s = %v", c.field, c.value)
	}
}

// Order represents a sort specification.
type Order struct {
	field     string
	ascending bool
}

// Field returns the order field name.
func (o Order) Field() string { return o.field }

// Ascending returns true for ASC, false for DESC.
func (o Order) Ascending() bool { return o.ascending }

// WithCondition adds a field = value equality condition.
// Domain packages use this to define their own typed options.
func WithCondition(field string, value any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{kind: KindEqual, field: field, value: value})
		return q
	}
}

// WithConditionIn adds a field IN (values) condition.
func WithConditionIn(field string, values any) Option {
	return func(q Query) Query {
		q.conditions = append(q.conditions, Condition{kind: KindIn, field: field, value: values})
		return q
	}
}

// WithContainsAny matches rows where any of the fields contains text,
// ignoring case. Wildcard characters in text match literally.
func WithContainsAny(text string, fields ...string) Option {
	return func(q Query) Query {
		cp := make([]string, len(fields))
		copy(cp, fields)
		q.conditions = append(q.conditions, Condition{kind: KindContainsAny, fields: cp, value: text})
		return q
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) Option {
	return func(q Query) Query {
		q.limit = n
		return q
	}
}

// WithOffset sets the result offset.
func WithOffset(n int) Option {
	return func(q Query) Query {
		q.offset = n
		return q
	}
}

// WithOrderAsc adds ascending ordering on a field.
func WithOrderAsc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: true})
		return q
	}
}

// WithOrderDesc adds descending ordering on a field.
func WithOrderDesc(field string) Option {
	return func(q Query) Query {
		q.orders = append(q.orders, Order{field: field, ascending: false})
		return q
	}
}

// WithParam stores an arbitrary key-value pair on the query.
// Domain packages define typed option builders on top of this.
func WithParam(key string, value any) Option {
	return func(q Query) Query {
		if q.params == nil {
			q.params = make(map[string]any)
		}
		q.params[key] = value
		return q
	}
}
