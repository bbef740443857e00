// Package database connects to the relational stores translated filters run against.
package database

import (
	"context"
	"database/sql"

	"github.com/satishbabariya/celquery/internal/core/query/domain"
)

// Querier runs read-only statements in one SQL dialect.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	GetDialect() domain.SQLDialect
}

// Adapter is a Querier with a connection lifecycle.
type Adapter interface {
	Querier

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context) error

	// Execute runs a statement that returns no rows, such as DDL or seed data.
	Execute(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Config selects and tunes a provider. Zero values fall back to driver defaults,
// except ConnectTimeout which defaults to 10 seconds.
type Config struct {
	// Provider is postgres, postgresql, mysql, sqlite or sqlite3.
	Provider string
	URL      string

	MaxConnections int
	// MaxIdleTime and ConnectTimeout are in seconds.
	MaxIdleTime    int
	ConnectTimeout int
}
