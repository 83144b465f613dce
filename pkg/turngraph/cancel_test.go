package turngraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turngraph/turngraph/pkg/turngraph/cancel"
)

// TestRun_CancelledBeforeFirstNode tests Scenario D: a signal fired
// before any node executes rejects with *CancellationError, no
// transform runs, and the returned state equals the untouched initial
// state.
func TestRun_CancelledBeforeFirstNode(t *testing.T) {
	var executed []string

	compiled, err := NewGraph().
		AddNode("a", makeTrackingNode("a", &executed)).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	sig := cancel.New()
	sig.Fire(errors.New("superseded by newer message"))

	ctx := NewContext(context.Background(),
		WithRunID("run-d"),
		WithSignal(sig))

	result, err := compiled.Run(ctx, State{"message": "hello"})

	require.Error(t, err)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "run-d", cancelErr.RunID)
	assert.False(t, cancelErr.WasExecuting)
	assert.Equal(t, START, cancelErr.Node)

	assert.Empty(t, executed)
	assert.Equal(t, State{"message": "hello"}, result)
}

// TestRun_CancelledDuringNode tests the cooperative boundary: a signal
// that fires while node N runs still merges N's result, but N+1 never
// executes.
func TestRun_CancelledDuringNode(t *testing.T) {
	var executed []string
	sig := cancel.New()

	compiled, err := NewGraph().
		AddNode("n", func(ctx Context, s State) (State, error) {
			executed = append(executed, "n")
			sig.Fire(nil) // fires mid-execution
			return State{"n_ran": true}, nil
		}).
		AddNode("after", makeTrackingNode("after", &executed)).
		AddEdge(START, "n").
		AddEdge("n", "after").
		AddEdge("after", END).
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithSignal(sig))
	result, err := compiled.Run(ctx, State{})

	require.Error(t, err)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.True(t, cancelErr.WasExecuting)
	assert.Equal(t, "n", cancelErr.Node)

	// N's merged result stands; "after" never ran.
	assert.Equal(t, []string{"n"}, executed)
	assert.True(t, result.Bool("n_ran"))
}

// TestRun_CancellationDistinctFromNodeError tests that callers can tell
// "superseded" from "failed" by error type.
func TestRun_CancellationDistinctFromNodeError(t *testing.T) {
	sig := cancel.New()
	sig.Fire(nil)

	compiled, err := NewGraph().
		AddNode("a", passthrough).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithSignal(sig))
	_, err = compiled.Run(ctx, State{})

	var cancelErr *CancellationError
	var nodeErr *NodeError
	assert.True(t, errors.As(err, &cancelErr))
	assert.False(t, errors.As(err, &nodeErr))
}

// TestRun_CancellationCausePropagates tests that the broker-supplied
// cause is reachable through errors.Is on the run error.
func TestRun_CancellationCausePropagates(t *testing.T) {
	superseded := errors.New("turn superseded")

	compiled, err := NewGraph().
		AddNode("a", passthrough).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	sig := cancel.New()
	sig.Fire(superseded)

	ctx := NewContext(context.Background(), WithSignal(sig))
	_, err = compiled.Run(ctx, State{})

	require.Error(t, err)
	assert.ErrorIs(t, err, superseded)
}

// TestRun_CancelledViaBroker tests the full path: a run subscribed on a
// per-user channel is aborted by a Cancel call from another goroutine.
func TestRun_CancelledViaBroker(t *testing.T) {
	broker := cancel.NewBroker()
	started := make(chan struct{})

	compiled, err := NewGraph().
		AddNode("slow", func(ctx Context, s State) (State, error) {
			close(started)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
				t.Error("cancellation never arrived")
			}
			return State{"slow_done": true}, nil
		}).
		AddNode("after", passthrough).
		AddEdge(START, "slow").
		AddEdge("slow", "after").
		AddEdge("after", END).
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(),
		WithRunID("turn-9"),
		WithCancel(broker, "user-42"))

	go func() {
		<-started
		broker.Cancel("user-42", errors.New("newer message arrived"))
	}()

	result, err := compiled.Run(ctx, State{})

	require.Error(t, err)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "turn-9", cancelErr.RunID)
	assert.True(t, cancelErr.WasExecuting)

	// The slow node observed ctx.Done and returned; its result merged.
	assert.True(t, result.Bool("slow_done"))
}

// TestRun_ParentContextCancellation tests that plain context
// cancellation (a caller timeout) aborts the walk the same way.
func TestRun_ParentContextCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	compiled, err := NewGraph().
		AddNode("a", passthrough).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(NewContext(parent), State{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.ErrorIs(t, err, context.Canceled)
}
