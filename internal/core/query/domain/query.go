// Package domain contains the query types the SQL compiler and executor exchange.
package domain

import (
	"context"
	"fmt"
	"strconv"

	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
)

// Query is a read over one root model, optionally filtered by a compiled predicate.
type Query struct {
	Model     string
	Table     string
	Operation QueryOperation
	// Filter is nil for an unfiltered read.
	Filter     filter.Predicate
	Joins      []*filter.Join
	Distinct   bool
	Ordering   []OrderBy
	Pagination Pagination
}

// FromTranslation builds a FindMany query from a translation.
func FromTranslation(t *filter.Translation) *Query {
	return &Query{
		Model:     t.Root,
		Table:     t.Table,
		Operation: FindMany,
		Filter:    t.Predicate,
		Joins:     t.Joins,
		Distinct:  t.Distinct,
	}
}

// QueryOperation represents the type of query operation.
type QueryOperation string

const (
	// FindMany finds multiple records.
	FindMany QueryOperation = "FindMany"
	// FindFirst finds the first matching record.
	FindFirst QueryOperation = "FindFirst"
	// Count counts matching records.
	Count QueryOperation = "Count"
)

// OrderBy defines sorting on a root column.
type OrderBy struct {
	Column    string
	Direction SortDirection
}

// SortDirection represents sort direction.
type SortDirection string

const (
	// Asc sorts ascending.
	Asc SortDirection = "ASC"
	// Desc sorts descending.
	Desc SortDirection = "DESC"
)

// Pagination defines result pagination.
type Pagination struct {
	Skip *int
	Take *int
}

// SQL represents generated SQL.
type SQL struct {
	Query   string
	Args    []any
	Dialect SQLDialect
}

// SQLDialect represents a SQL dialect.
type SQLDialect string

const (
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
)

// CompiledQuery represents a compiled query ready for execution.
type CompiledQuery struct {
	SQL       SQL
	Model     string
	Operation QueryOperation
	CacheKey  string
}

// Row is one result row keyed by column name.
type Row = map[string]any

// CountOf extracts the value of a Count query's single "count" column.
func CountOf(rows []Row) (int64, error) {
	if len(rows) != 1 {
		return 0, fmt.Errorf("count query returned %d rows", len(rows))
	}
	switch n := rows[0]["count"].(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case string:
		v, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid count %q: %w", n, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("unexpected count type %T", rows[0]["count"])
}

// QueryCompiler compiles queries to SQL.
type QueryCompiler interface {
	Compile(ctx context.Context, query *Query) (*CompiledQuery, error)
}

// QueryExecutor runs compiled queries.
type QueryExecutor interface {
	Execute(ctx context.Context, query *CompiledQuery) ([]Row, error)
}
