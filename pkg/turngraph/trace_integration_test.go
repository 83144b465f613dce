package turngraph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turngraph/turngraph/pkg/turngraph/trace"
)

// TestRun_TraceJournal tests that WithTrace appends one state snapshot
// per executed node, in execution order, keyed by the run ID.
func TestRun_TraceJournal(t *testing.T) {
	store := trace.NewMemoryStore()

	compiled, err := NewGraph().
		AddNode("a", makePatchNode(State{"step": "a"})).
		AddNode("b", makePatchNode(State{"step": "b"})).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{"message": "hi"}, WithTrace(store))
	require.NoError(t, err)

	records, err := store.Run("test-run")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1, records[0].Seq)
	assert.Equal(t, "a", records[0].NodeID)
	assert.Equal(t, 2, records[1].Seq)
	assert.Equal(t, "b", records[1].NodeID)

	// Each record holds the state after that node, JSON-encoded.
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(records[1].State, &snapshot))
	assert.Equal(t, "b", snapshot["step"])
	assert.Equal(t, "hi", snapshot["message"])
}

// TestRun_TraceRevisitedNode tests that a node executed twice yields
// two records: the journal is keyed by sequence, not node ID.
func TestRun_TraceRevisitedNode(t *testing.T) {
	store := trace.NewMemoryStore()

	again := func(s State) string {
		if s.Int("n") >= 2 {
			return "done"
		}
		return "again"
	}

	compiled, err := NewGraph().
		AddNode("loop", func(ctx Context, s State) (State, error) {
			return State{"n": s.Int("n") + 1}, nil
		}).
		AddEdge(START, "loop").
		AddConditionalEdges("loop", again, map[string]string{"again": "loop", "done": END}).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{}, WithTrace(store))
	require.NoError(t, err)

	records, err := store.Run("test-run")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "loop", records[0].NodeID)
	assert.Equal(t, "loop", records[1].NodeID)
}

// failingTraceStore rejects every append.
type failingTraceStore struct {
	trace.Store
}

func (failingTraceStore) Append(runID, nodeID string, state []byte) (int, error) {
	return 0, errors.New("disk full")
}

// TestRun_TraceAppendFailureDoesNotFailRun tests that journaling is
// best-effort: a broken store never aborts the walk.
func TestRun_TraceAppendFailureDoesNotFailRun(t *testing.T) {
	compiled, err := NewGraph().
		AddNode("a", makePatchNode(State{"x": 1})).
		AddEdge(START, "a").
		AddEdge("a", END).
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{}, WithTrace(failingTraceStore{}))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Int("x"))
}

// TestRun_TraceStopsAtFailure tests that the journal covers only the
// nodes that completed before a failure.
func TestRun_TraceStopsAtFailure(t *testing.T) {
	store := trace.NewMemoryStore()

	compiled, err := NewGraph().
		AddNode("a", makePatchNode(State{"step": "a"})).
		AddNode("b", makeFailingNode(errors.New("boom"))).
		AddEdge(START, "a").
		AddEdge("a", "b").
		AddEdge("b", END).
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{}, WithTrace(store))
	require.Error(t, err)

	records, err := store.Run("test-run")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].NodeID)
}
