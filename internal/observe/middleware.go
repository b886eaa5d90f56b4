package observe

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// traceContext handles W3C traceparent extraction and injection for the
// HTTP middleware.
var traceContext = propagation.TraceContext{}

// responseTap records the status code the downstream handler writes so the
// middleware can attach it to the span after the fact. Handlers that never
// call WriteHeader implicitly return 200.
type responseTap struct {
	http.ResponseWriter
	status int
}

func (t *responseTap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

// Middleware instruments every request on the wrapped handler: it continues
// an incoming W3C trace (or starts a fresh one), echoes the trace ID back as
// X-Correlation-ID, and records the request into m.HTTPRequestDuration with
// method and path attributes. A completion line is logged per request.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := traceContext.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := StartSpan(ctx, "HTTP "+r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				))
			defer span.End()

			if cid := CorrelationID(ctx); cid != "" {
				w.Header().Set("X-Correlation-ID", cid)
			}
			traceContext.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			tap := &responseTap{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(tap, r.WithContext(ctx))
			elapsed := time.Since(start)

			span.SetAttributes(semconv.HTTPResponseStatusCode(tap.status))
			m.HTTPRequestDuration.Record(ctx, elapsed.Seconds(),
				metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("path", r.URL.Path),
				))

			slog.InfoContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", tap.status,
				"duration", elapsed,
				"trace_id", CorrelationID(ctx))
		})
	}
}
