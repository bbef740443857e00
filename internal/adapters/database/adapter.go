package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/satishbabariya/celquery/internal/core/query/domain"
)

// ErrNotConnected is returned by every operation before Connect succeeds.
var ErrNotConnected = errors.New("database not connected")

type provider struct {
	driver  string
	dialect domain.SQLDialect
}

var providers = map[string]provider{
	"postgres":   {driver: "postgres", dialect: domain.PostgreSQL},
	"postgresql": {driver: "postgres", dialect: domain.PostgreSQL},
	"mysql":      {driver: "mysql", dialect: domain.MySQL},
	"sqlite":     {driver: "sqlite3", dialect: domain.SQLite},
	"sqlite3":    {driver: "sqlite3", dialect: domain.SQLite},
}

// DialectOf returns the SQL dialect spoken by a provider.
func DialectOf(provider string) (domain.SQLDialect, error) {
	p, ok := providers[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("unsupported database provider: %s", provider)
	}
	return p.dialect, nil
}

// SQLAdapter implements Adapter on top of database/sql for every supported provider.
type SQLAdapter struct {
	db       *sql.DB
	config   Config
	provider provider
}

// NewAdapter creates an adapter for config.Provider.
func NewAdapter(config Config) (*SQLAdapter, error) {
	p, ok := providers[strings.ToLower(config.Provider)]
	if !ok {
		return nil, fmt.Errorf("unsupported database provider: %s", config.Provider)
	}
	if config.URL == "" {
		return nil, fmt.Errorf("database url is required for %s", config.Provider)
	}
	return &SQLAdapter{config: config, provider: p}, nil
}

// Connect establishes a connection to the database.
func (a *SQLAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open(a.provider.driver, a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if a.provider.dialect == domain.SQLite {
		// a second connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else if a.config.MaxConnections > 0 {
		db.SetMaxOpenConns(a.config.MaxConnections)
		db.SetMaxIdleConns(max(a.config.MaxConnections/2, 1))
	}
	db.SetConnMaxIdleTime(time.Duration(a.config.MaxIdleTime) * time.Second)

	timeout := time.Duration(a.config.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if a.provider.dialect == domain.SQLite {
		if _, err := db.ExecContext(pingCtx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	a.db = db
	return nil
}

// Disconnect closes the database connection.
func (a *SQLAdapter) Disconnect(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Execute executes a statement without returning rows.
func (a *SQLAdapter) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *SQLAdapter) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}
	return a.db.QueryContext(ctx, query, args...)
}

// Ping checks if the database connection is alive.
func (a *SQLAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return ErrNotConnected
	}
	return a.db.PingContext(ctx)
}

// GetDialect returns the SQL dialect.
func (a *SQLAdapter) GetDialect() domain.SQLDialect {
	return a.provider.dialect
}

// Ensure SQLAdapter implements Adapter interface.
var _ Adapter = (*SQLAdapter)(nil)
