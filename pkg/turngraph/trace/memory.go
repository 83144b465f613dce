package trace

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory trace store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string][]Record // runID -> records in append order
	closed bool
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory trace store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string][]Record),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(runID, nodeID string, state []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	// Copy state to avoid retaining caller's slice
	stored := make([]byte, len(state))
	copy(stored, state)

	seq := len(m.runs[runID]) + 1
	m.runs[runID] = append(m.runs[runID], Record{
		RunID:  runID,
		Seq:    seq,
		NodeID: nodeID,
		State:  stored,
		At:     time.Now().UTC(),
	})

	return seq, nil
}

// Run implements Store.
func (m *MemoryStore) Run(runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	records := m.runs[runID]
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = copyRecord(rec)
	}
	return out, nil
}

// Last implements Store.
func (m *MemoryStore) Last(runID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, ErrStoreClosed
	}

	records := m.runs[runID]
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return copyRecord(records[len(records)-1]), nil
}

// Runs implements Store.
func (m *MemoryStore) Runs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the total number of records across all runs.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, records := range m.runs {
		count += len(records)
	}
	return count
}

// copyRecord returns a record whose state bytes the caller may modify.
func copyRecord(rec Record) Record {
	state := make([]byte, len(rec.State))
	copy(state, rec.State)
	rec.State = state
	return rec
}
