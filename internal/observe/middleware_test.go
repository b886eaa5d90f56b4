package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newInstrumentedHandler wires a Middleware-wrapped handler against in-memory
// metric and span collectors.
func newInstrumentedHandler(t *testing.T, inner http.HandlerFunc) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	return Middleware(m)(inner), reader, exp
}

func TestMiddlewareCorrelationID(t *testing.T) {
	var inCtx string
	h, _, _ := newInstrumentedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		inCtx = CorrelationID(r.Context())
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if len(inCtx) != 32 {
		t.Fatalf("correlation ID in handler context = %q, want a 32-char trace ID", inCtx)
	}
	if hdr := rec.Header().Get("X-Correlation-ID"); hdr != inCtx {
		t.Errorf("X-Correlation-ID = %q, want %q", hdr, inCtx)
	}
}

func TestMiddlewareSpanNameAndStatus(t *testing.T) {
	h, _, exp := newInstrumentedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /missing" {
		t.Errorf("span name = %q, want HTTP GET /missing", spans[0].Name)
	}
	var status int64 = -1
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != http.StatusNotFound {
		t.Errorf("span status attribute = %d, want 404", status)
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	h, reader, _ := newInstrumentedHandler(t, func(w http.ResponseWriter, r *http.Request) {})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/api/meetings/1", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "scribe.http.request.duration")
	if met == nil {
		t.Fatal("scribe.http.request.duration was not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("duration metric data = %T with no points", met.Data)
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	method, _ := dp.Attributes.Value("method")
	path, _ := dp.Attributes.Value("path")
	if method.AsString() != "DELETE" || path.AsString() != "/api/meetings/1" {
		t.Errorf("attributes = %s %s, want DELETE /api/meetings/1", method.AsString(), path.AsString())
	}
}

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	const upstream = "4bf92f3577b34da6a3ce929d0e0e4736"

	var inCtx string
	h, _, _ := newInstrumentedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		inCtx = CorrelationID(r.Context())
	})

	req := httptest.NewRequest("GET", "/traced", nil)
	req.Header.Set("traceparent", "00-"+upstream+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if inCtx != upstream {
		t.Errorf("correlation ID = %q, want the upstream trace ID %q", inCtx, upstream)
	}
	if hdr := rec.Header().Get("X-Correlation-ID"); hdr != upstream {
		t.Errorf("X-Correlation-ID = %q, want %q", hdr, upstream)
	}
}
