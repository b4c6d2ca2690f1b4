// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, and HTTP middleware that ties
// them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/Plasmow/VoiceScamShield"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per analysis stage ---

	// TranscribeDuration tracks transcription latency per window.
	TranscribeDuration metric.Float64Histogram

	// SpoofDuration tracks synthetic-voice classification latency per window.
	SpoofDuration metric.Float64Histogram

	// IntentDuration tracks intent classification latency per window.
	IntentDuration metric.Float64Histogram

	// AnalysisDuration tracks full window analysis latency (all three stages
	// plus smoothing).
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// ChunksReceived counts inbound audio chunks. Use with attribute:
	//   attribute.String("speaker", ...)
	ChunksReceived metric.Int64Counter

	// AnalysisEvents counts emitted analysis events. Use with attributes:
	//   attribute.String("speaker", ...), attribute.String("intent_label", ...)
	AnalysisEvents metric.Int64Counter

	// --- Error counters ---

	// AnalyzerErrors counts analyzer failures that degraded to a heuristic
	// fallback. Use with attribute: attribute.String("stage", ...)
	AnalyzerErrors metric.Int64Counter

	// ProtocolErrors counts malformed or unrecognized inbound messages.
	ProtocolErrors metric.Int64Counter

	// StorageErrors counts failed segment writes (the chunk is still counted
	// in the ledger).
	StorageErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCalls tracks the number of live call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for inference latencies at the one-second window cadence.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("scamshield.transcribe.duration",
		metric.WithDescription("Latency of window transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpoofDuration, err = m.Float64Histogram("scamshield.spoof.duration",
		metric.WithDescription("Latency of synthetic-voice classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IntentDuration, err = m.Float64Histogram("scamshield.intent.duration",
		metric.WithDescription("Latency of intent classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnalysisDuration, err = m.Float64Histogram("scamshield.analysis.duration",
		metric.WithDescription("End-to-end window analysis latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunksReceived, err = m.Int64Counter("scamshield.chunks.received",
		metric.WithDescription("Total inbound audio chunks by speaker."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisEvents, err = m.Int64Counter("scamshield.analysis.events",
		metric.WithDescription("Total emitted analysis events by speaker and intent label."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.AnalyzerErrors, err = m.Int64Counter("scamshield.analyzer.errors",
		metric.WithDescription("Total analyzer failures degraded to a fallback, by stage."),
	); err != nil {
		return nil, err
	}
	if met.ProtocolErrors, err = m.Int64Counter("scamshield.protocol.errors",
		metric.WithDescription("Total malformed or unrecognized inbound messages."),
	); err != nil {
		return nil, err
	}
	if met.StorageErrors, err = m.Int64Counter("scamshield.storage.errors",
		metric.WithDescription("Total failed segment writes."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCalls, err = m.Int64UpDownCounter("scamshield.active_calls",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("scamshield.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordChunk records one received chunk for a speaker.
func (m *Metrics) RecordChunk(ctx context.Context, speaker string) {
	m.ChunksReceived.Add(ctx, 1,
		metric.WithAttributes(attribute.String("speaker", speaker)),
	)
}

// RecordAnalysisEvent records one emitted analysis event.
func (m *Metrics) RecordAnalysisEvent(ctx context.Context, speaker, intentLabel string) {
	m.AnalysisEvents.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("speaker", speaker),
			attribute.String("intent_label", intentLabel),
		),
	)
}

// RecordAnalyzerError records an analyzer failure for a pipeline stage.
func (m *Metrics) RecordAnalyzerError(ctx context.Context, stage string) {
	m.AnalyzerErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
