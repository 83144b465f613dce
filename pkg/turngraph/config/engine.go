package config

import "log/slog"

// Default engine settings.
const (
	// DefaultEventBufferSize matches the event bus default.
	DefaultEventBufferSize = 256
)

// Engine holds run pipeline settings extracted from configuration.
// Zero values mean "disabled" or "unlimited" as documented per field.
type Engine struct {
	// MaxSteps caps the number of node executions per run.
	// 0 means unlimited.
	MaxSteps int

	// TracePath is the SQLite file for trace journals.
	// Empty disables persistent tracing; ":memory:" keeps it in-process.
	TracePath string

	// EventBufferSize is the per-subscription event buffer.
	EventBufferSize int

	// LogLevel is the minimum level for run logging.
	LogLevel slog.Level

	// Metrics enables OpenTelemetry metric recording.
	Metrics bool

	// Tracing enables OpenTelemetry span creation.
	Tracing bool
}

// Engine extracts engine settings from the receiver's top-level keys:
// max_steps, trace_path, event_buffer_size, log_level, metrics,
// tracing. For nested layouts call Section first:
//
//	eng := cfg.Section("engine").Engine()
func (c Config) Engine() Engine {
	return Engine{
		MaxSteps:        c.Int("max_steps", 0),
		TracePath:       c.String("trace_path", ""),
		EventBufferSize: c.Int("event_buffer_size", DefaultEventBufferSize),
		LogLevel:        c.Level("log_level", slog.LevelInfo),
		Metrics:         c.Bool("metrics", false),
		Tracing:         c.Bool("tracing", false),
	}
}
