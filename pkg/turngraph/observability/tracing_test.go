package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs an in-memory span exporter and returns it
// plus a cleanup restoring the previous provider.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Rebind the package tracer to the test provider.
	tracer = otel.Tracer("turngraph")

	cleanup := func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("turngraph")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("tracer provider shutdown: %v", err)
		}
	}
	return exporter, cleanup
}

func TestSpanManager_StartRunSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartRunSpan(context.Background(), "assistant", "run-123")
	require.NotNil(t, span)
	require.NotNil(t, ctx)

	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "turngraph.run", spans[0].Name)

	var graphName, runID string
	for _, attr := range spans[0].Attributes {
		switch attr.Key {
		case "graph.name":
			graphName = attr.Value.AsString()
		case "run.id":
			runID = attr.Value.AsString()
		}
	}
	assert.Equal(t, "assistant", graphName)
	assert.Equal(t, "run-123", runID)
}

func TestSpanManager_StartNodeSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	runCtx, runSpan := sm.StartRunSpan(context.Background(), "assistant", "run-123")
	_, nodeSpan := sm.StartNodeSpan(runCtx, "classify")

	nodeSpan.End()
	runSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// The node span is a child of the run span.
	assert.Equal(t, "turngraph.node.classify", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("records error status", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartNodeSpan(context.Background(), "classify")

		sm.EndSpanWithError(span, errors.New("model timeout"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		require.Len(t, spans[0].Events, 1) // RecordError event
	})

	t.Run("records ok status", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartNodeSpan(context.Background(), "classify")

		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("tolerates nil span", func(t *testing.T) {
		assert.NotPanics(t, func() { sm.EndSpanWithError(nil, errors.New("x")) })
	})
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartRunSpan(context.Background(), "assistant", "run-123")

	sm.AddSpanEvent(ctx, "route.resolved", attribute.String("label", "search"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "route.resolved", spans[0].Events[0].Name)

	// No recording span in the context: silently ignored.
	assert.NotPanics(t, func() {
		sm.AddSpanEvent(context.Background(), "ignored")
	})
}
