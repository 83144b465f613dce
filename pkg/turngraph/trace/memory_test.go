package trace_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turngraph/turngraph/pkg/turngraph/trace"
)

// TestMemoryStore_Len tests the record count across runs.
func TestMemoryStore_Len(t *testing.T) {
	store := trace.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())

	store.Append("run-1", "a", []byte(`{}`))
	store.Append("run-1", "b", []byte(`{}`))
	store.Append("run-2", "a", []byte(`{}`))

	assert.Equal(t, 3, store.Len())
}

// TestMemoryStore_StateIsolated tests that stored bytes are decoupled
// from the caller's slices in both directions.
func TestMemoryStore_StateIsolated(t *testing.T) {
	store := trace.NewMemoryStore()
	defer store.Close()

	payload := []byte(`{"x":1}`)
	_, err := store.Append("run-1", "a", payload)
	require.NoError(t, err)

	// Mutating the appended slice must not affect the store.
	payload[2] = 'y'

	rec, err := store.Last("run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"x":1}`), rec.State)

	// Mutating a returned record must not affect later reads.
	rec.State[2] = 'z'
	again, err := store.Last("run-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"x":1}`), again.State)
}

// TestMemoryStore_ConcurrentAppends tests parallel appends across runs.
func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	store := trace.NewMemoryStore()
	defer store.Close()

	const perRun = 20
	var wg sync.WaitGroup

	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		wg.Add(1)
		go func(runID string) {
			defer wg.Done()
			for i := 0; i < perRun; i++ {
				_, err := store.Append(runID, "node", []byte(`{}`))
				assert.NoError(t, err)
			}
		}(runID)
	}
	wg.Wait()

	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		records, err := store.Run(runID)
		require.NoError(t, err)
		require.Len(t, records, perRun)
		for i, rec := range records {
			assert.Equal(t, i+1, rec.Seq)
		}
	}
}
