// Package telemetry records translation and query metrics.
package telemetry

import (
	"context"
	"time"
)

// Telemetry defines the telemetry adapter interface.
type Telemetry interface {
	// RecordTranslation records one filter translation.
	RecordTranslation(ctx context.Context, info TranslationInfo)

	// RecordQuery records a query execution.
	RecordQuery(ctx context.Context, info QueryInfo)

	// RecordCache records a translation cache lookup.
	RecordCache(ctx context.Context, hit bool)
}

// TranslationInfo contains information about a translation.
type TranslationInfo struct {
	// Root is the root model the expression was compiled against.
	Root string

	Duration time.Duration

	// ErrorKind is empty on success.
	ErrorKind string

	// Joins is the number of relationship joins introduced.
	Joins int
}

// QueryInfo contains information about a query.
type QueryInfo struct {
	Model     string
	Operation string
	Duration  time.Duration
	Success   bool
	Rows      int
}

// Config holds telemetry configuration.
type Config struct {
	// Type is the telemetry type (noop, prometheus).
	Type string

	// Namespace prefixes every metric name.
	Namespace string
}
