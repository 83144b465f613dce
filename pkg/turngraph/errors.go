package turngraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building. Compile wraps each violation in
// one of these and joins them all, so a single error value reports
// every problem in the graph definition.
var (
	// ErrEmptyNodeID indicates AddNode was called with an empty or
	// whitespace-only identifier.
	ErrEmptyNodeID = errors.New("node ID is empty or whitespace")

	// ErrReservedID indicates a declaration used START or END where a
	// registered node is required.
	ErrReservedID = errors.New("reserved node ID")

	// ErrNilNodeFunc indicates AddNode was called with a nil transform.
	ErrNilNodeFunc = errors.New("node function is nil")

	// ErrNilRouter indicates AddConditionalEdges was called with a nil router.
	ErrNilRouter = errors.New("router function is nil")

	// ErrEmptyPathMap indicates AddConditionalEdges was called with no labels.
	ErrEmptyPathMap = errors.New("conditional edge has no labels")

	// ErrDuplicateNode indicates the same node ID was registered twice.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrUnknownNode indicates an edge endpoint names a node that was
	// never registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoEntryRule indicates START has no outgoing rule.
	ErrNoEntryRule = errors.New("no outgoing rule from START")

	// ErrConflictingRules indicates a node has both a static and a
	// conditional outgoing rule.
	ErrConflictingRules = errors.New("node has both static and conditional rules")

	// ErrMultipleRules indicates a node has more than one outgoing rule
	// of the same kind.
	ErrMultipleRules = errors.New("node has multiple outgoing rules")

	// ErrNoOutgoingRule indicates a registered node has no outgoing rule
	// at all, making it a dead end.
	ErrNoOutgoingRule = errors.New("node has no outgoing rule")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrEmptyLabel indicates a router returned the empty string.
	ErrEmptyLabel = errors.New("router returned empty label")

	// ErrUnmappedLabel indicates a router returned a label absent from
	// its path map.
	ErrUnmappedLabel = errors.New("unmapped routing label")

	// ErrStepLimit indicates the opt-in step limit was exceeded.
	ErrStepLimit = errors.New("step limit exceeded")
)

// NodeError wraps an error returned by a node transform with the node
// name and run identifier, so callers can tell which step of which
// turn failed. The transform's error is reachable via errors.Is/As.
type NodeError struct {
	// Node is the identifier of the node whose transform failed.
	Node string
	// RunID is the run during which the failure occurred.
	RunID string
	// Err is the error the transform returned.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (run %s): %v", e.Node, e.RunID, e.Err)
}

// Unwrap returns the transform's error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a node transform, with the
// stack trace at the point of panic. The walk aborts; nothing is
// merged for the panicking node.
type PanicError struct {
	// Node is the identifier of the node that panicked.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace captured during recovery.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.Node, e.Value)
}

// RouterError reports a conditional routing failure: the router
// returned a label that is empty or not present in the edge's path
// map. It names the node, the offending label, and every label the
// path map does accept, so misrouted graphs are cheap to debug.
type RouterError struct {
	// Node is the node whose conditional edge failed to resolve.
	Node string
	// Label is what the router returned.
	Label string
	// Available lists the labels the path map accepts, sorted.
	Available []string
	// Err is ErrEmptyLabel or ErrUnmappedLabel.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("routing from %s: label %q not in [%s]: %v",
		e.Node, e.Label, strings.Join(e.Available, " "), e.Err)
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// CancellationError reports that a run was cancelled. It is a distinct
// type so callers can tell "this turn was superseded" from "this turn
// failed": errors.As against *CancellationError distinguishes the two.
//
// The state accumulated before cancellation is returned by Run
// alongside the error; if cancellation fired before the first node,
// that state equals the untouched initial state.
type CancellationError struct {
	// RunID identifies the cancelled run.
	RunID string
	// Node is the node that was executing when the signal fired, or,
	// when WasExecuting is false, the walk position where the engine
	// observed the signal (START if no node had run).
	Node string
	// Cause is the cancellation cause (context.Canceled, a deadline, or
	// the cause supplied to the cancel signal).
	Cause error
	// WasExecuting is true if the signal fired while a node ran. That
	// node's result was still merged; no later node executed.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("run %s cancelled during node %s: %v", e.RunID, e.Node, e.Cause)
	}
	return fmt.Sprintf("run %s cancelled at %s: %v", e.RunID, e.Node, e.Cause)
}

// Unwrap returns the cancellation cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// StepLimitError reports that a run exceeded the limit configured with
// WithMaxSteps. Without that option runs are unbounded: a cycle in the
// edge table runs until cancelled, which is the caller's contract.
type StepLimitError struct {
	// Limit is the configured maximum number of node executions.
	Limit int
	// Node is the node that would have executed next.
	Node string
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("exceeded %d steps at node %s", e.Limit, e.Node)
}

// Unwrap returns ErrStepLimit for errors.Is support.
func (e *StepLimitError) Unwrap() error {
	return ErrStepLimit
}
