// Package gateway is the persistence boundary: semantic select, insert,
// update and delete operations against the relational store, independent of
// the domain types that ride on top of it.
package gateway

import (
	"context"
	"fmt"
	"strings"
)

// Row is a column→value map for inserts and patches.
type Row map[string]any

// Op is a filter comparison.
type Op int

const (
	OpEq Op = iota
	OpIn
	OpIsNull
	OpNotNull
)

// Filter restricts the rows an operation touches.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches column = value.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// In matches column IN values.
func In[T any](column string, values []T) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// IsNull matches column IS NULL.
func IsNull(column string) Filter { return Filter{Column: column, Op: OpIsNull} }

// NotNull matches column IS NOT NULL.
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

// Order sorts selected rows.
type Order struct {
	Column string
	Desc   bool
}

// Join pulls columns from a related table through a foreign key on the
// selected table. Joined columns are aliased Prefix+column.
type Join struct {
	Table         string
	LocalColumn   string
	ForeignColumn string
	Columns       []string
	Prefix        string
}

// Query describes a select.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	GroupBy []string
	Limit   int
	Join    *Join
}

// Gateway is the contract the domain layer consumes. Implementations must be
// safe for concurrent use.
type Gateway interface {
	// Select reads rows into dest, a pointer to a slice of structs.
	Select(ctx context.Context, table string, q Query, dest any) error
	// Insert writes one row.
	Insert(ctx context.Context, table string, row Row) error
	// Update applies patch to every row matching filters.
	Update(ctx context.Context, table string, patch Row, filters ...Filter) (int64, error)
	// Delete removes every row matching filters.
	Delete(ctx context.Context, table string, filters ...Filter) (int64, error)
}

// whereClause renders filters as a parameterized SQL condition. Column names
// come from repository code, never from user input.
func whereClause(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if f.Column == "" {
			return "", nil, fmt.Errorf("gateway: filter without column")
		}
		switch f.Op {
		case OpEq:
			parts = append(parts, f.Column+" = ?")
			args = append(args, f.Value)
		case OpIn:
			parts = append(parts, f.Column+" IN ?")
			args = append(args, f.Value)
		case OpIsNull:
			parts = append(parts, f.Column+" IS NULL")
		case OpNotNull:
			parts = append(parts, f.Column+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("gateway: unknown filter op %d", f.Op)
		}
	}
	return strings.Join(parts, " AND "), args, nil
}
