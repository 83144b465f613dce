package turngraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/turngraph/turngraph/pkg/turngraph/cancel"
)

// Context provides execution context to nodes.
// It extends context.Context with the run's logger and identifiers.
//
// Context is immutable after creation. The executor creates derived
// contexts for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node
	// context during execution.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// RunID returns the identifier for this run. Opaque to the engine:
	// it exists so callers can address cancellation at the right run
	// and correlate trace records.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the node currently executing.
	// Empty string outside node execution.
	NodeID() string
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	nodeID string
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The executor enriches it with run_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunID sets the run identifier for the context.
// If not set, a UUID is auto-generated.
func WithRunID(id string) ContextOption {
	return func(c *executionContext) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithSignal binds a one-shot cancellation signal to the context: when
// the signal fires, the context is cancelled with the signal's cause.
// A signal that already fired cancels the context immediately.
func WithSignal(sig *cancel.Signal) ContextOption {
	return func(c *executionContext) {
		if sig == nil {
			return
		}
		ctx, cause := context.WithCancelCause(c.Context)
		sig.OnFire(func(err error) {
			cause(err)
		})
		c.Context = ctx
	}
}

// WithCancel subscribes to the source's channel and binds the resulting
// signal, so external cancellation requests addressed to that channel
// (typically one per user or session) reach this run.
//
//	broker := cancel.NewBroker()
//	ctx := turngraph.NewContext(parent,
//	    turngraph.WithRunID(runID),
//	    turngraph.WithCancel(broker, "user-42"))
//
// Anything may later call broker.Cancel("user-42", cause) to abort the
// run between nodes.
func WithCancel(src cancel.Source, channel string) ContextOption {
	return func(c *executionContext) {
		if src == nil {
			return
		}
		WithSignal(src.Subscribe(channel))(c)
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds the
// run's logger and identifiers.
//
// Example:
//
//	ctx := turngraph.NewContext(context.Background(),
//	    turngraph.WithLogger(myLogger),
//	    turngraph.WithRunID("turn-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a new context with the given node ID set.
// Used internally by the executor to enrich the context per-node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID),
		runID:   c.runID,
		nodeID:  nodeID,
	}
}
