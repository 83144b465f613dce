package cancel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrCancelled is the cause recorded when Fire is called with nil.
var ErrCancelled = errors.New("cancelled")

// Signal is a one-shot cancellation flag: it transitions from active
// to fired exactly once and never resets. Waiters observe the
// transition through the Done channel or an OnFire observer, so
// nothing has to poll.
//
// Signals fan in safely: any number of goroutines may call Fire, and
// only the first call wins.
type Signal struct {
	id string

	mu        sync.Mutex
	done      chan struct{}
	cause     error
	fired     bool
	observers []func(error)
}

// New creates an unfired signal.
func New() *Signal {
	return &Signal{
		id:   fmt.Sprintf("sig-%s", uuid.New().String()[:8]),
		done: make(chan struct{}),
	}
}

// ID returns the signal's identifier, used in logs.
func (s *Signal) ID() string {
	return s.id
}

// Fire moves the signal to the fired state with the given cause (nil
// means ErrCancelled), closes Done, and runs registered observers.
// Only the first call has any effect; Fire reports whether this call
// was the one that fired the signal.
func (s *Signal) Fire(cause error) bool {
	if cause == nil {
		cause = ErrCancelled
	}

	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return false
	}
	s.fired = true
	s.cause = cause
	observers := s.observers
	s.observers = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(cause)
	}
	return true
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Cause returns the cause recorded by Fire, or nil while the signal is
// still active.
func (s *Signal) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// OnFire registers fn to run once when the signal fires, with the
// firing cause. If the signal has already fired, fn runs immediately
// on the calling goroutine.
func (s *Signal) OnFire(fn func(cause error)) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	if s.fired {
		cause := s.cause
		s.mu.Unlock()
		fn(cause)
		return
	}
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}
