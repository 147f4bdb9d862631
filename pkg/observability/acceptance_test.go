package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/codeflat/pkg/observability"
)

// acceptanceSpanCount is root + resolve + order + assemble.
const acceptanceSpanCount = 4

// acceptanceFileCount is the simulated number of flattened files.
const acceptanceFileCount = 7

// TestAcceptance_EndToEnd checks traces, metrics and trace-correlated logs
// together over one simulated flatten run.
func TestAcceptance_EndToEnd(t *testing.T) {
	t.Parallel()

	spanExporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanExporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	tracer := tp.Tracer("codeflat")

	metricReader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)).Meter("codeflat")

	red, err := observability.NewREDMetrics(meter)
	require.NoError(t, err)

	stats, err := observability.NewFlattenMetrics(meter)
	require.NoError(t, err)

	var logBuf bytes.Buffer

	innerHandler := slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(innerHandler, "codeflat", "test", observability.ModeCLI))

	ctx, rootSpan := tracer.Start(context.Background(), "flatten.run")

	for _, name := range []string{"flatten.resolve", "flatten.order", "flatten.assemble"} {
		_, child := tracer.Start(ctx, name)
		child.End()
	}

	red.RecordRequest(ctx, "flatten", "ok", 20*time.Millisecond)
	stats.RecordRun(ctx, observability.FlattenStats{Files: acceptanceFileCount, Bytes: 4096})
	stats.RecordCache(ctx, "content", 5, 2)

	logger.InfoContext(ctx, "flatten finished", "files", acceptanceFileCount)

	rootSpan.End()

	spans := spanExporter.GetSpans()
	require.Len(t, spans, acceptanceSpanCount)

	traceID := spans[0].SpanContext.TraceID()
	for _, s := range spans[1:] {
		assert.Equal(t, traceID, s.SpanContext.TraceID(), "span %q should share trace ID", s.Name)
	}

	var rm metricdata.ResourceMetrics

	require.NoError(t, metricReader.Collect(ctx, &rm))

	for _, name := range []string{
		"codeflat.requests.total",
		"codeflat.request.duration.seconds",
		"codeflat.flatten.files.total",
		"codeflat.flatten.output.bytes.total",
		"codeflat.resolver.cache.hits.total",
		"codeflat.resolver.cache.misses.total",
	} {
		assert.NotNil(t, findMetric(rm, name), "%s should be recorded", name)
	}

	var logRecord map[string]any

	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logRecord))

	assert.Equal(t, traceID.String(), logRecord["trace_id"])
	assert.Contains(t, logRecord, "span_id")
	assert.Equal(t, "codeflat", logRecord["service"])

	files, ok := logRecord["files"].(float64)
	require.True(t, ok, "files should be a number")
	assert.InDelta(t, acceptanceFileCount, files, 0)
}
