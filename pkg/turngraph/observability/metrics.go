package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordRun records a completed graph run.
	RecordRun(ctx context.Context, success bool, duration time.Duration)

	// RecordRouteDecision records a resolved conditional edge.
	RecordRouteDecision(ctx context.Context, from, label string)

	// RecordCancellation records a cancelled run.
	RecordCancellation(ctx context.Context, nodeID string, wasExecuting bool)

	// RecordTraceAppend records a persisted trace record and its size.
	RecordTraceAppend(ctx context.Context, nodeID string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	routeDecisions metric.Int64Counter
	cancellations  metric.Int64Counter
	traceSize      metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel metrics instance.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("turngraph")

	nodeExecutions, err := meter.Int64Counter("turngraph.node.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("turngraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("turngraph.node.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("turngraph.run.total",
		metric.WithDescription("Number of graph runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("turngraph.run.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	routeDecisions, err := meter.Int64Counter("turngraph.route.decisions",
		metric.WithDescription("Number of resolved conditional edges"),
	)
	if err != nil {
		return nil, err
	}

	cancellations, err := meter.Int64Counter("turngraph.run.cancellations",
		metric.WithDescription("Number of cancelled runs"),
	)
	if err != nil {
		return nil, err
	}

	traceSize, err := meter.Int64Histogram("turngraph.trace.size_bytes",
		metric.WithDescription("Trace record size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeExecutions: nodeExecutions,
		nodeLatency:    nodeLatency,
		nodeErrors:     nodeErrors,
		runs:           runs,
		runLatency:     runLatency,
		routeDecisions: routeDecisions,
		cancellations:  cancellations,
		traceSize:      traceSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If instrument creation fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_id", nodeID),
	}

	m.nodeExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRun records a graph run.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordRouteDecision records a resolved conditional edge.
func (m *otelMetrics) RecordRouteDecision(ctx context.Context, from, label string) {
	m.routeDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", from),
		attribute.String("label", label),
	))
}

// RecordCancellation records a cancelled run.
func (m *otelMetrics) RecordCancellation(ctx context.Context, nodeID string, wasExecuting bool) {
	m.cancellations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.Bool("was_executing", wasExecuting),
	))
}

// RecordTraceAppend records a persisted trace record.
func (m *otelMetrics) RecordTraceAppend(ctx context.Context, nodeID string, sizeBytes int64) {
	m.traceSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("node_id", nodeID),
	))
}
