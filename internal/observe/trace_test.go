package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// spanCtx returns a context carrying a live span recorded into the returned
// exporter.
func spanCtx(t *testing.T) (context.Context, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "test-span")
	t.Cleanup(func() { span.End() })
	return ctx, exp
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID outside a span = %q, want empty", got)
	}

	ctx, _ := spanCtx(t)
	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("CorrelationID = %q, want 32 hex chars", cid)
	}
	if strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("CorrelationID %q contains non-hex characters", cid)
	}
}

func TestStartSpanRecords(t *testing.T) {
	ctx, exp := spanCtx(t)

	_, span := StartSpan(ctx, "child-op")
	span.End()

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	if spans[0].Name != "child-op" {
		t.Errorf("span name = %q, want child-op", spans[0].Name)
	}
}

func TestLoggerCarriesTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	// No span: plain default logger, no trace attributes.
	Logger(context.Background()).Info("plain")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log without a span carries trace_id: %s", buf.String())
	}

	buf.Reset()
	ctx, _ := spanCtx(t)
	Logger(ctx).Info("traced")
	out := buf.String()
	if !strings.Contains(out, "trace_id="+CorrelationID(ctx)) {
		t.Errorf("log missing trace_id, got: %s", out)
	}
	if !strings.Contains(out, "span_id=") {
		t.Errorf("log missing span_id, got: %s", out)
	}
}
