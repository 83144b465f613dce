package cancel

import (
	"log/slog"
	"sort"

	"github.com/turngraph/turngraph/pkg/turngraph/registry"
)

// Source hands out the cancellation signal for a named channel. It is
// the narrow interface a run context needs: whoever decides to cancel
// stays decoupled from how the executor finds out.
type Source interface {
	// Subscribe returns the signal for the channel, creating it on
	// first use. Repeated calls for the same channel return the same
	// signal.
	Subscribe(channel string) *Signal
}

// Broker is an in-process Source keyed by channel name, typically one
// channel per user or session. The consuming side subscribes when it
// builds a run context; the producing side (a newer message handler, a
// timeout timer, an operator) calls Cancel with the same key.
type Broker struct {
	channels *registry.Registry[string, *Signal]
	logger   *slog.Logger
}

var _ Source = (*Broker)(nil)

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		channels: registry.New[string, *Signal](),
		logger:   slog.Default(),
	}
}

// WithLogger sets the broker's logger and returns the broker.
func (b *Broker) WithLogger(logger *slog.Logger) *Broker {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Subscribe implements Source.
func (b *Broker) Subscribe(channel string) *Signal {
	return b.channels.GetOrCreate(channel, New)
}

// Cancel fires the channel's signal with the given cause. It reports
// whether this call fired the signal; false means no subscription
// exists for the channel or the signal had already fired.
func (b *Broker) Cancel(channel string, cause error) bool {
	sig, ok := b.channels.Get(channel)
	if !ok {
		b.logger.Debug("cancel requested for unknown channel", "channel", channel)
		return false
	}

	fired := sig.Fire(cause)
	if fired {
		b.logger.Debug("cancellation delivered",
			"channel", channel,
			"signal_id", sig.ID(),
		)
	}
	return fired
}

// Release forgets the channel. Signals are one-shot, so a channel that
// cancelled a run is spent; releasing it lets the next Subscribe for
// the same key start fresh.
func (b *Broker) Release(channel string) {
	b.channels.Delete(channel)
}

// Channels returns the currently subscribed channel keys, sorted.
func (b *Broker) Channels() []string {
	keys := b.channels.Keys()
	sort.Strings(keys)
	return keys
}

// Len returns the number of live channels.
func (b *Broker) Len() int {
	return b.channels.Len()
}
