package turngraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/turngraph/turngraph/pkg/turngraph/event"
	"github.com/turngraph/turngraph/pkg/turngraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph for one conversational turn.
//
// Run returns the accumulated state and any error encountered. The
// state is always returned: on success it is the state after the last
// node before END, on failure or cancellation it is the state at the
// point the walk stopped (useful for diagnostics and fallbacks).
//
// Execution flow:
//  1. Start at START with a copy of the initial state.
//  2. Abort with *CancellationError if the context is already cancelled.
//  3. Resolve the next node from the edge table (conditional edges call
//     their router; an unmapped label is a *RouterError).
//  4. If END is resolved, return the accumulated state.
//  5. Execute the node's transform; an error aborts as *NodeError, a
//     panic as *PanicError.
//  6. Shallow-merge the transform's result into the state.
//  7. Re-check cancellation: a signal that fired during the node keeps
//     that node's merged result but stops before the next node.
//  8. Advance and repeat.
//
// Run never retries and never falls back to a default route; every
// failure propagates to the caller.
//
// Example:
//
//	ctx := turngraph.NewContext(context.Background(),
//	    turngraph.WithCancel(broker, userChannel))
//	result, err := compiled.Run(ctx, turngraph.State{"message": text})
//	if errors.As(err, new(*turngraph.CancellationError)) {
//	    // turn superseded, result holds the partial state
//	}
func (cg *CompiledGraph) Run(ctx Context, initial State, opts ...RunOption) (result State, runErr error) {
	if ctx == nil {
		return initial, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := ctx.RunID()
	startTime := time.Now()

	observability.LogRunStart(cfg.logger, runID)
	if cfg.bus != nil {
		cfg.bus.Publish(event.New(event.TypeRunStarted, runID))
	}

	// Span context for observability calls; nodes receive ctx itself.
	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, "turngraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var steps int
	result, steps, runErr = cg.walk(tracingCtx, ctx, initial.Clone(), &cfg, runID)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	var cancelErr *CancellationError
	switch {
	case runErr == nil:
		observability.LogRunComplete(cfg.logger, runID, durationMs, steps)
		if cfg.bus != nil {
			evt := event.New(event.TypeRunCompleted, runID)
			evt.Steps = steps
			evt.Elapsed = durationMs
			cfg.bus.Publish(evt)
		}
	case errors.As(runErr, &cancelErr):
		cfg.metrics.RecordCancellation(ctx, cancelErr.Node, cancelErr.WasExecuting)
		observability.LogRunCancelled(cfg.logger, runID, cancelErr.Node, cancelErr.WasExecuting, durationMs)
		if cfg.bus != nil {
			evt := event.New(event.TypeRunCancelled, runID)
			evt.Node = cancelErr.Node
			evt.Steps = steps
			evt.Elapsed = durationMs
			evt.Err = runErr.Error()
			cfg.bus.Publish(evt)
		}
	default:
		failed := lastNode(runErr)
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, failed)
		if cfg.bus != nil {
			evt := event.New(event.TypeRunFailed, runID)
			evt.Node = failed
			evt.Steps = steps
			evt.Elapsed = durationMs
			evt.Err = runErr.Error()
			cfg.bus.Publish(evt)
		}
	}

	return result, runErr
}

// walk advances through the edge table from START until END, an error,
// or cancellation. Returns the accumulated state, the number of nodes
// executed, and the terminal error (nil when END was reached).
func (cg *CompiledGraph) walk(tracingCtx context.Context, runCtx Context, state State, cfg *runConfig, runID string) (State, int, error) {
	current := START
	steps := 0

	for {
		// A signal that has already fired aborts before any further
		// work, including routing.
		select {
		case <-runCtx.Done():
			return state, steps, &CancellationError{
				RunID:        runID,
				Node:         current,
				Cause:        context.Cause(runCtx),
				WasExecuting: false,
			}
		default:
		}

		next, err := cg.nextNode(tracingCtx, state, current, cfg, runID)
		if err != nil {
			return state, steps, err
		}

		if next == END {
			return state, steps, nil
		}

		if cfg.maxSteps > 0 && steps >= cfg.maxSteps {
			return state, steps, &StepLimitError{Limit: cfg.maxSteps, Node: next}
		}

		observability.LogNodeStart(cfg.logger, next)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, next)
		}

		nodeStart := time.Now()
		patch, nodeErr := cg.executeNode(runCtx, next, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, next, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, next, nodeErr)
			return state, steps, nodeErr
		}

		// The node ran, so its result is merged unconditionally, even
		// if the signal fired while it was executing.
		state = merge(state, patch)
		steps++
		observability.LogNodeComplete(cfg.logger, next, float64(nodeDuration.Milliseconds()))

		if cfg.bus != nil {
			evt := event.New(event.TypeNodeCompleted, runID)
			evt.Node = next
			evt.Steps = steps
			cfg.bus.Publish(evt)
		}

		if cfg.traceStore != nil {
			cg.appendTrace(nodeTracingCtx, cfg, runID, next, state)
		}

		// Post-node check: node execution is the only suspension
		// point, so a cancellation delivered mid-run lands here. The
		// merged result stands; no later node runs.
		select {
		case <-runCtx.Done():
			return state, steps, &CancellationError{
				RunID:        runID,
				Node:         next,
				Cause:        context.Cause(runCtx),
				WasExecuting: true,
			}
		default:
		}

		current = next
	}
}

// executeNode executes a single node with panic recovery.
// On success it returns the transform's result (a replacement or a
// patch, not yet merged). On failure the returned state is nil and the
// error is a *NodeError or *PanicError.
func (cg *CompiledGraph) executeNode(ctx Context, nodeID string, state State) (result State, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable after a successful Compile.
		return nil, &NodeError{
			Node:  nodeID,
			RunID: ctx.RunID(),
			Err:   fmt.Errorf("node not registered"),
		}
	}

	// Node-specific context with enriched logger.
	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{
				Node:  nodeID,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return nil, &NodeError{
			Node:  nodeID,
			RunID: ctx.RunID(),
			Err:   err,
		}
	}

	return result, nil
}

// nextNode resolves the successor of current from the edge table.
// Conditional edges call the router with the current state and look
// the label up in the path map; there is no default route.
func (cg *CompiledGraph) nextNode(tracingCtx context.Context, state State, current string, cfg *runConfig, runID string) (string, error) {
	if rule, exists := cg.getRule(current); exists {
		label := rule.router(state)

		if label == "" {
			return "", &RouterError{
				Node:      current,
				Label:     label,
				Available: cg.RouteLabels(current),
				Err:       ErrEmptyLabel,
			}
		}

		target, mapped := rule.paths[label]
		if !mapped {
			return "", &RouterError{
				Node:      current,
				Label:     label,
				Available: cg.RouteLabels(current),
				Err:       ErrUnmappedLabel,
			}
		}

		observability.LogRouteDecision(cfg.logger, current, label, target)
		cfg.metrics.RecordRouteDecision(tracingCtx, current, label)
		if cfg.bus != nil {
			evt := event.New(event.TypeRouteResolved, runID)
			evt.Node = current
			evt.Label = label
			evt.Target = target
			cfg.bus.Publish(evt)
		}

		return target, nil
	}

	if target, exists := cg.getStatic(current); exists {
		return target, nil
	}

	// Unreachable after a successful Compile.
	return "", fmt.Errorf("node %s has no outgoing rule", current)
}

// appendTrace journals the post-node state snapshot. Failures are
// logged and never interrupt the run.
func (cg *CompiledGraph) appendTrace(ctx context.Context, cfg *runConfig, runID, nodeID string, state State) {
	data, err := json.Marshal(state)
	if err != nil {
		observability.LogTraceError(cfg.logger, nodeID, "serialize", err)
		return
	}

	seq, err := cfg.traceStore.Append(runID, nodeID, data)
	if err != nil {
		observability.LogTraceError(cfg.logger, nodeID, "append", err)
		return
	}

	observability.LogTraceAppend(cfg.logger, nodeID, seq, len(data))
	cfg.metrics.RecordTraceAppend(ctx, nodeID, int64(len(data)))
}

// lastNode extracts the node a failure originated at, for logs.
func lastNode(err error) string {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return nodeErr.Node
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return panicErr.Node
	}
	var routerErr *RouterError
	if errors.As(err, &routerErr) {
		return routerErr.Node
	}
	var stepErr *StepLimitError
	if errors.As(err, &stepErr) {
		return stepErr.Node
	}
	return ""
}
