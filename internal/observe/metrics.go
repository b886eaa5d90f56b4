// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware that ties
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

// meterName is the instrumentation scope name used for all scribe metrics.
const meterName = "github.com/weihan0529/global-meeting-scribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// StageDuration tracks per-collaborator inference latency. Use with
	// attributes:
	//   attribute.String("stage", "vad"|"stt"|"diarize"|"translate"|"insight")
	StageDuration metric.Float64Histogram

	// PipelineDuration tracks one full pipeline run end to end. Use with
	// attribute: attribute.String("cadence", "fast"|"slow")
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// PipelineRuns counts pipeline runs by cadence and outcome. Use with
	// attributes:
	//   attribute.String("cadence", ...), attribute.String("status", "ok"|"empty"|"error")
	PipelineRuns metric.Int64Counter

	// BusyRejections counts full-pipeline triggers dropped because a run
	// was already in flight.
	BusyRejections metric.Int64Counter

	// DegradedTranslations counts translation routes that stopped short of
	// the requested target. Use with attributes:
	//   attribute.String("source", ...), attribute.String("target", ...)
	DegradedTranslations metric.Int64Counter

	// StageErrors counts collaborator call failures. Use with attribute:
	//   attribute.String("stage", ...)
	StageErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live transcription sessions.
	ActiveSessions metric.Int64UpDownCounter

	// BufferedAudioSeconds tracks audio waiting in cadence buffers across
	// all sessions.
	BufferedAudioSeconds metric.Float64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// inference-call latencies: fast-path stages land in the sub-second
// buckets, slow-path diarization and LLM calls in the upper ones.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("scribe.stage.duration",
		metric.WithDescription("Latency of one pipeline stage's collaborator call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("scribe.pipeline.duration",
		metric.WithDescription("End-to-end latency of one pipeline run by cadence."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.PipelineRuns, err = m.Int64Counter("scribe.pipeline.runs",
		metric.WithDescription("Total pipeline runs by cadence and status."),
	); err != nil {
		return nil, err
	}
	if met.BusyRejections, err = m.Int64Counter("scribe.pipeline.busy_rejections",
		metric.WithDescription("Total triggers rejected because a run was in flight."),
	); err != nil {
		return nil, err
	}
	if met.DegradedTranslations, err = m.Int64Counter("scribe.translate.degraded",
		metric.WithDescription("Total translations that degraded below the requested target."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("scribe.stage.errors",
		metric.WithDescription("Total collaborator call failures by stage."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("scribe.active_sessions",
		metric.WithDescription("Number of live transcription sessions."),
	); err != nil {
		return nil, err
	}
	if met.BufferedAudioSeconds, err = m.Float64UpDownCounter("scribe.buffered_audio_seconds",
		metric.WithDescription("Audio buffered across all cadence buffers."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("scribe.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records one collaborator call's latency and, on failure, its
// error counter.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64, err error) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
	if err != nil {
		m.StageErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("stage", stage)),
		)
	}
}

// RecordPipelineRun records one completed pipeline run.
func (m *Metrics) RecordPipelineRun(ctx context.Context, cadence, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("cadence", cadence),
		attribute.String("status", status),
	)
	m.PipelineRuns.Add(ctx, 1, attrs)
	m.PipelineDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("cadence", cadence)),
	)
}

// RecordDegradedTranslation records a translation route that fell back.
func (m *Metrics) RecordDegradedTranslation(ctx context.Context, source, target string) {
	m.DegradedTranslations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("target", target),
		),
	)
}
