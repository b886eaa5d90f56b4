package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// scopeName identifies this module as the instrumentation scope on every
// span it starts.
const scopeName = "github.com/weihan0529/global-meeting-scribe"

// Tracer returns the module's [trace.Tracer] from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// StartSpan opens a span named name under whatever span ctx already
// carries. Callers own span.End.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the active trace ID in ctx, or "" outside a span.
// Clients see the same value in the X-Correlation-ID response header, so
// support can line up a report with the server's spans and logs.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger bound to ctx's trace and span IDs, so
// log lines written during a span can be joined with it. Outside a span it
// is just slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		"trace_id", sc.TraceID().String(),
		"span_id", sc.SpanID().String(),
	)
}
