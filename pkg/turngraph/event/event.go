// Package event provides lightweight pub/sub notification of run
// lifecycle events.
//
// The executor publishes an Event at each significant point of a run:
// when the run starts, after each node completes, after each routing
// decision, and when the run finishes (success, failure, or
// cancellation). Subscribers observe runs without being able to block
// or alter them: delivery is asynchronous and drops rather than
// applying backpressure to the run loop.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of lifecycle event.
type Type string

// Lifecycle event types published by the executor.
const (
	TypeRunStarted    Type = "run.started"
	TypeNodeCompleted Type = "node.completed"
	TypeRouteResolved Type = "route.resolved"
	TypeRunCompleted  Type = "run.completed"
	TypeRunFailed     Type = "run.failed"
	TypeRunCancelled  Type = "run.cancelled"
)

// Event describes a single point in a run's lifecycle.
// Fields beyond ID, Type, RunID, and At are populated only where they
// apply: Node for node and routing events, Label and Target for
// routing events, Steps and Elapsed for terminal events, Err for
// failures and cancellations.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Type is the lifecycle event type.
	Type Type `json:"type"`

	// RunID identifies the run this event belongs to.
	RunID string `json:"run_id"`

	// Node is the node the event concerns, if any.
	Node string `json:"node,omitempty"`

	// Label is the label a router returned (route.resolved only).
	Label string `json:"label,omitempty"`

	// Target is the node the label mapped to (route.resolved only).
	Target string `json:"target,omitempty"`

	// Steps is the number of nodes executed (terminal events only).
	Steps int `json:"steps,omitempty"`

	// Elapsed is the run duration in milliseconds (terminal events only).
	Elapsed float64 `json:"elapsed_ms,omitempty"`

	// Err is the error message for run.failed and run.cancelled.
	Err string `json:"error,omitempty"`

	// At is when the event occurred.
	At time.Time `json:"at"`
}

// New creates an event of the given type for a run, with a fresh ID
// and the current time. Callers fill in the remaining fields before
// publishing.
func New(t Type, runID string) Event {
	return Event{
		ID:    uuid.New().String(),
		Type:  t,
		RunID: runID,
		At:    time.Now(),
	}
}

// Handler receives events from a Bus subscription.
// Handlers run on the subscription's own goroutine; a slow handler
// delays only its own subscription, never the publisher.
type Handler func(evt Event)
