package event

import (
	"sync"
	"sync/atomic"
)

// Bus provides pub/sub distribution of lifecycle events with fan-out.
type Bus interface {
	// Publish sends an event to all matching subscribers.
	// Publish never blocks: if a subscriber's buffer is full the
	// event is dropped for that subscriber.
	Publish(evt Event)

	// Subscribe creates a subscription for specific event types.
	Subscribe(types []Type, handler Handler) *Subscription

	// SubscribeAll subscribes to all event types.
	SubscribeAll(handler Handler) *Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 256
	BufferSize int

	// OnDrop is called when a subscriber's buffer is full and an
	// event is dropped for it.
	OnDrop func(evt Event, subscriberID int64)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 256,
}

// LocalBus is an in-memory Bus implementation.
type LocalBus struct {
	config BusConfig

	mu        sync.RWMutex
	subs      map[int64]*Subscription
	byType    map[Type]map[int64]*Subscription
	wildcards map[int64]*Subscription

	nextID atomic.Int64
	closed atomic.Bool
}

// Compile-time interface check.
var _ Bus = (*LocalBus)(nil)

// NewBus creates a new local event bus.
func NewBus(config BusConfig) *LocalBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}

	return &LocalBus{
		config:    config,
		subs:      make(map[int64]*Subscription),
		byType:    make(map[Type]map[int64]*Subscription),
		wildcards: make(map[int64]*Subscription),
	}
}

// Subscription is an active registration with a Bus.
// Events are delivered to the handler on a dedicated goroutine.
type Subscription struct {
	id      int64
	types   []Type // empty = all types
	handler Handler
	events  chan Event
	done    chan struct{}
	stop    sync.Once
	bus     *LocalBus
}

// Publish sends an event to all matching subscribers.
func (b *LocalBus) Publish(evt Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	subs := b.matching(evt.Type)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- evt:
		default:
			// Buffer full - drop rather than block the publisher.
			if b.config.OnDrop != nil {
				b.config.OnDrop(evt, sub.id)
			}
		}
	}
}

// Subscribe creates a subscription for specific event types.
func (b *LocalBus) Subscribe(types []Type, handler Handler) *Subscription {
	return b.subscribe(types, handler)
}

// SubscribeAll subscribes to all event types.
func (b *LocalBus) SubscribeAll(handler Handler) *Subscription {
	return b.subscribe(nil, handler)
}

func (b *LocalBus) subscribe(types []Type, handler Handler) *Subscription {
	if b.closed.Load() || handler == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:      b.nextID.Add(1),
		types:   types,
		handler: handler,
		events:  make(chan Event, b.config.BufferSize),
		done:    make(chan struct{}),
		bus:     b,
	}

	b.subs[sub.id] = sub

	if len(types) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, t := range types {
			if b.byType[t] == nil {
				b.byType[t] = make(map[int64]*Subscription)
			}
			b.byType[t][sub.id] = sub
		}
	}

	go sub.process()

	return sub
}

// matching returns all subscriptions interested in an event type.
// Callers must hold b.mu.
func (b *LocalBus) matching(t Type) []*Subscription {
	subs := make([]*Subscription, 0, len(b.wildcards)+len(b.byType[t]))

	for _, sub := range b.byType[t] {
		subs = append(subs, sub)
	}
	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}

	return subs
}

// Close shuts down the bus and stops all subscription goroutines.
func (b *LocalBus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.stopDelivery()
	}
	b.subs = make(map[int64]*Subscription)
	b.byType = make(map[Type]map[int64]*Subscription)
	b.wildcards = make(map[int64]*Subscription)

	return nil
}

// process delivers buffered events to the handler until the
// subscription stops. Events already buffered when the subscription
// stops are discarded.
func (s *Subscription) process() {
	for {
		select {
		case evt := <-s.events:
			s.handler(evt)
		case <-s.done:
			return
		}
	}
}

// Unsubscribe removes the subscription and stops its delivery
// goroutine. It is safe to call more than once and safe to call
// after the bus is closed.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	delete(s.bus.wildcards, s.id)
	for _, t := range s.types {
		if typeSubs, ok := s.bus.byType[t]; ok {
			delete(typeSubs, s.id)
		}
	}
	s.bus.mu.Unlock()

	s.stopDelivery()
}

func (s *Subscription) stopDelivery() {
	s.stop.Do(func() {
		close(s.done)
	})
}
