package retrieval

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/sembase/faqd/internal/retrieval"

// Metrics holds retrieval metrics: per-route embedding latency, search
// latency, and the drift counter for embedding-route disagreement.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	embedDur  metric.Float64Histogram
	searchDur metric.Float64Histogram
	drift     metric.Int64Counter
	errors    metric.Int64Counter
}

// NewMetrics creates a Metrics instance for retrieval.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.embedDur, err = m.meter.Float64Histogram(
		"faqd.retrieval.embed_duration_seconds",
		metric.WithDescription("Query embedding latency in seconds, labeled by route (pipeline, service)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create embed duration histogram", zap.Error(err))
	}

	m.searchDur, err = m.meter.Float64Histogram(
		"faqd.retrieval.search_duration_seconds",
		metric.WithDescription("KNN search latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create search duration histogram", zap.Error(err))
	}

	m.drift, err = m.meter.Int64Counter(
		"faqd.retrieval.embedding_drift_total",
		metric.WithDescription("Times the pipeline and service embedding routes disagreed beyond tolerance. Sustained growth suggests model-version skew between the ingest pipeline and the embedding service."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		m.logger.Warn("failed to create drift counter", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"faqd.retrieval.errors_total",
		metric.WithDescription("Retrieval errors by stage (embed, search) and route"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordEmbed records one embedding route attempt.
func (m *Metrics) RecordEmbed(ctx context.Context, route string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("route", route))
	if m.embedDur != nil {
		m.embedDur.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", "embed"),
			attribute.String("route", route),
		))
	}
}

// RecordSearch records one KNN search.
func (m *Metrics) RecordSearch(ctx context.Context, duration time.Duration, err error) {
	if m.searchDur != nil {
		m.searchDur.Record(ctx, duration.Seconds())
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "search")))
	}
}

// RecordDrift records one embedding-route disagreement.
func (m *Metrics) RecordDrift(ctx context.Context) {
	if m.drift != nil {
		m.drift.Add(ctx, 1)
	}
}
