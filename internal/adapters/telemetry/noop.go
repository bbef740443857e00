package telemetry

import "context"

// NoopTelemetry discards everything.
type NoopTelemetry struct{}

// NewNoopTelemetry creates a no-op telemetry adapter.
func NewNoopTelemetry() *NoopTelemetry {
	return &NoopTelemetry{}
}

// RecordTranslation does nothing.
func (n *NoopTelemetry) RecordTranslation(ctx context.Context, info TranslationInfo) {}

// RecordQuery does nothing.
func (n *NoopTelemetry) RecordQuery(ctx context.Context, info QueryInfo) {}

// RecordCache does nothing.
func (n *NoopTelemetry) RecordCache(ctx context.Context, hit bool) {}

var _ Telemetry = (*NoopTelemetry)(nil)
