package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusTelemetry implements Telemetry using Prometheus metrics.
type PrometheusTelemetry struct {
	gatherer prometheus.Gatherer

	TranslationsTotal   *prometheus.CounterVec
	TranslationDuration *prometheus.HistogramVec
	JoinsPerTranslation prometheus.Histogram
	QueriesTotal        *prometheus.CounterVec
	QueryDuration       *prometheus.HistogramVec
	QueryRows           *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
}

// NewPrometheusTelemetry creates the metrics and registers them with reg.
func NewPrometheusTelemetry(config *Config, reg *prometheus.Registry) *PrometheusTelemetry {
	ns := "celquery"
	if config != nil && config.Namespace != "" {
		ns = config.Namespace
	}

	p := &PrometheusTelemetry{
		gatherer: reg,
		TranslationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "translations_total",
			Help:      "Filter translations by root model and result.",
		}, []string{"root", "result"}),
		TranslationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "translation_duration_seconds",
			Help:      "Time spent translating filter expressions.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"root"}),
		JoinsPerTranslation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "translation_joins",
			Help:      "Relationship joins introduced per successful translation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "queries_total",
			Help:      "Executed queries by model, operation and status.",
		}, []string{"model", "operation", "status"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "query_duration_seconds",
			Help:      "Query execution time.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"model", "operation"}),
		QueryRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "query_rows",
			Help:      "Rows returned per query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"model"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "translation_cache_lookups_total",
			Help:      "Translation cache lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		p.TranslationsTotal,
		p.TranslationDuration,
		p.JoinsPerTranslation,
		p.QueriesTotal,
		p.QueryDuration,
		p.QueryRows,
		p.CacheLookups,
	)
	return p
}

// RecordTranslation records a translation.
func (p *PrometheusTelemetry) RecordTranslation(ctx context.Context, info TranslationInfo) {
	result := "ok"
	if info.ErrorKind != "" {
		result = info.ErrorKind
	}
	p.TranslationsTotal.WithLabelValues(info.Root, result).Inc()
	p.TranslationDuration.WithLabelValues(info.Root).Observe(info.Duration.Seconds())
	if info.ErrorKind == "" {
		p.JoinsPerTranslation.Observe(float64(info.Joins))
	}
}

// RecordQuery records a query execution.
func (p *PrometheusTelemetry) RecordQuery(ctx context.Context, info QueryInfo) {
	status := "success"
	if !info.Success {
		status = "error"
	}
	p.QueriesTotal.WithLabelValues(info.Model, info.Operation, status).Inc()
	p.QueryDuration.WithLabelValues(info.Model, info.Operation).Observe(info.Duration.Seconds())
	if info.Success {
		p.QueryRows.WithLabelValues(info.Model).Observe(float64(info.Rows))
	}
}

// RecordCache records a cache lookup.
func (p *PrometheusTelemetry) RecordCache(ctx context.Context, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.CacheLookups.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusTelemetry) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Ensure PrometheusTelemetry implements Telemetry interface.
var _ Telemetry = (*PrometheusTelemetry)(nil)
