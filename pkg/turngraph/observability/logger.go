// Package observability provides structured logging, metrics, and
// distributed tracing for graph runs.
//
// Logging uses slog from the standard library; metrics and spans use
// OpenTelemetry. Everything is opt-in: the executor takes a
// MetricsRecorder and SpanManager through run options, and no-op
// implementations exist for both.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger. Returns a new logger
// carrying run_id and node_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "classify")
//	enriched.Info("doing work") // includes run_id, node_id
func EnrichLogger(logger *slog.Logger, runID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", steps),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogRunCancelled logs a cancelled graph run. wasExecuting reports
// whether the signal fired while a node ran or between nodes.
func LogRunCancelled(logger *slog.Logger, runID, node string, wasExecuting bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("graph run cancelled",
		slog.String("run_id", runID),
		slog.String("node_id", node),
		slog.Bool("was_executing", wasExecuting),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogRouteDecision logs a resolved conditional edge.
func LogRouteDecision(logger *slog.Logger, from, label, target string) {
	if logger == nil {
		return
	}
	logger.Debug("route resolved",
		slog.String("node_id", from),
		slog.String("label", label),
		slog.String("target", target),
	)
}

// LogTraceAppend logs a persisted trace record.
func LogTraceAppend(logger *slog.Logger, nodeID string, seq int, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("trace record appended",
		slog.String("node_id", nodeID),
		slog.Int("seq", seq),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogTraceError logs a trace persistence failure (non-fatal).
func LogTraceError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("trace append failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation. Returns a
// function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
