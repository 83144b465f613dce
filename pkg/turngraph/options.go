package turngraph

import (
	"log/slog"

	"github.com/turngraph/turngraph/pkg/turngraph/event"
	"github.com/turngraph/turngraph/pkg/turngraph/observability"
	"github.com/turngraph/turngraph/pkg/turngraph/trace"
)

// runConfig holds configuration for one Run call.
type runConfig struct {
	maxSteps int

	logger *slog.Logger

	metrics        observability.MetricsRecorder
	metricsEnabled bool

	spans          observability.SpanManager
	tracingEnabled bool

	traceStore trace.Store
	bus        event.Bus
}

// defaultRunConfig returns the default execution configuration:
// unbounded steps, no lifecycle logging, no metrics, no spans, no
// trace journal, no event bus.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior for a single Run call.
type RunOption func(*runConfig)

// WithMaxSteps caps the number of node executions in one run.
// Default: 0 (unbounded).
//
// The engine performs no cycle detection: a cycle in the edge table is
// legal and runs until cancellation. WithMaxSteps is the opt-in guard
// for callers that want a hard ceiling instead; exceeding it returns
// *StepLimitError.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, turngraph.WithMaxSteps(100))
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithObservabilityLogger enables run and node lifecycle logging to
// the given logger. Without it the executor stays silent; nodes log
// through ctx.Logger() either way.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metric recording for
// this run. Disabled by default. Enabling without a configured meter
// provider is safe: instruments fall back to the global provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		c.metricsEnabled = enabled
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry span creation for this
// run. Disabled by default. Enabling without a configured tracer
// provider is safe: spans are no-ops until one is registered.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithTrace journals a JSON snapshot of the state after every executed
// node to the store, keyed by the context's run ID. The engine only
// appends; applications inspect the journal after Run returns. Append
// failures are logged and never fail the run.
func WithTrace(store trace.Store) RunOption {
	return func(c *runConfig) {
		c.traceStore = store
	}
}

// WithEventBus publishes run lifecycle events (run.started,
// node.completed, route.resolved, and a terminal run.completed,
// run.failed, or run.cancelled) to the bus. Publishing never blocks
// the run.
func WithEventBus(bus event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}
