// Package trace provides persistent step journals for run inspection.
//
// A trace records the state snapshot produced after each node of a run,
// in execution order. Because routing may revisit nodes, records are
// keyed by sequence number rather than node ID: a run that loops
// through the same node three times produces three records.
package trace

import (
	"errors"
	"time"
)

// Store persists trace records for runs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds a record for a run and returns its sequence number.
	// Sequences start at 1 and grow by one per append.
	Append(runID, nodeID string, state []byte) (int, error)

	// Run returns all records for a run, ordered by sequence.
	// Returns an empty slice (not an error) if the run has no records.
	Run(runID string) ([]Record, error)

	// Last returns the most recent record for a run.
	// Returns ErrNotFound if the run has no records.
	Last(runID string) (Record, error)

	// Runs returns the IDs of all runs with at least one record,
	// sorted lexically.
	Runs() ([]string, error)

	// DeleteRun removes all records for a run.
	// Returns nil if the run has no records.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Record is one journaled step: the state after a node executed.
type Record struct {
	RunID  string
	Seq    int
	NodeID string
	State  []byte
	At     time.Time
}

// Sentinel errors for trace operations.
var (
	// ErrNotFound indicates a run has no trace records.
	ErrNotFound = errors.New("trace not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("trace store closed")
)
