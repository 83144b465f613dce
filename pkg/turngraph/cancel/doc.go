// Package cancel delivers external cancellation into running graph
// executions.
//
// A Signal is a one-shot flag with a Done channel and observer
// callbacks; it fires at most once and records a cause. A Broker maps
// channel names (one per user or session) to signals, decoupling the
// code that decides to cancel a turn from the executor that must stop.
//
// The usual wiring: the side processing a turn subscribes while
// building the run context, the side that supersedes the turn cancels
// by the same key.
//
//	broker := cancel.NewBroker()
//
//	// consumer, per turn
//	ctx := turngraph.NewContext(context.Background(),
//	    turngraph.WithRunID(runID),
//	    turngraph.WithCancel(broker, "user-42"))
//
//	// producer, when a newer message arrives
//	broker.Cancel("user-42", errors.New("superseded by newer message"))
//
// Cancellation is cooperative: the executor checks the signal before
// and after each node, and a node blocked in a long external call is
// only interrupted if its own implementation watches ctx.Done().
package cancel
