// Package executor implements query execution.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/satishbabariya/celquery/internal/adapters/database"
	"github.com/satishbabariya/celquery/internal/adapters/telemetry"
	"github.com/satishbabariya/celquery/internal/core/query/domain"
)

// QueryExecutor implements the domain.QueryExecutor interface.
type QueryExecutor struct {
	db        database.Querier
	telemetry telemetry.Telemetry
}

// NewQueryExecutor creates a new query executor. A nil telemetry records nothing.
func NewQueryExecutor(db database.Querier, tel telemetry.Telemetry) *QueryExecutor {
	if tel == nil {
		tel = telemetry.NewNoopTelemetry()
	}
	return &QueryExecutor{
		db:        db,
		telemetry: tel,
	}
}

// Execute executes a compiled query and returns its rows keyed by column name.
func (e *QueryExecutor) Execute(ctx context.Context, query *domain.CompiledQuery) ([]domain.Row, error) {
	if e.db == nil {
		return nil, fmt.Errorf("database adapter not initialized")
	}

	start := time.Now()
	results, err := e.execute(ctx, query)
	e.telemetry.RecordQuery(ctx, telemetry.QueryInfo{
		Model:     query.Model,
		Operation: operationOf(query),
		Duration:  time.Since(start),
		Success:   err == nil,
		Rows:      len(results),
	})
	return results, err
}

func (e *QueryExecutor) execute(ctx context.Context, query *domain.CompiledQuery) ([]domain.Row, error) {
	rows, err := e.db.Query(ctx, query.SQL.Query, query.SQL.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := []domain.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		result := make(domain.Row, len(columns))
		for i, col := range columns {
			// text columns come back as []byte from some drivers
			if b, ok := values[i].([]byte); ok {
				result[col] = string(b)
			} else {
				result[col] = values[i]
			}
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// Count runs a compiled Count query and returns the single count value.
func (e *QueryExecutor) Count(ctx context.Context, query *domain.CompiledQuery) (int64, error) {
	rows, err := e.Execute(ctx, query)
	if err != nil {
		return 0, err
	}
	return domain.CountOf(rows)
}

func operationOf(query *domain.CompiledQuery) string {
	if query.Operation != "" {
		return string(query.Operation)
	}
	return string(domain.FindMany)
}

// Ensure QueryExecutor implements QueryExecutor interface.
var _ domain.QueryExecutor = (*QueryExecutor)(nil)
