package event

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls until the condition holds or the test deadline nears.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 2*time.Millisecond)
}

// TestBus_SubscribeReceivesMatchingTypes tests type filtering.
func TestBus_SubscribeReceivesMatchingTypes(t *testing.T) {
	bus := NewBus(DefaultBusConfig)
	defer bus.Close()

	var received atomic.Int64
	sub := bus.Subscribe([]Type{TypeRunCompleted}, func(evt Event) {
		received.Add(1)
	})
	defer sub.Unsubscribe()

	bus.Publish(New(TypeRunStarted, "run-1"))
	bus.Publish(New(TypeRunCompleted, "run-1"))
	bus.Publish(New(TypeNodeCompleted, "run-1"))

	waitFor(t, func() bool { return received.Load() == 1 })
}

// TestBus_SubscribeAll tests wildcard subscriptions.
func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(DefaultBusConfig)
	defer bus.Close()

	var received atomic.Int64
	sub := bus.SubscribeAll(func(evt Event) {
		received.Add(1)
	})
	defer sub.Unsubscribe()

	bus.Publish(New(TypeRunStarted, "run-1"))
	bus.Publish(New(TypeRunCancelled, "run-1"))

	waitFor(t, func() bool { return received.Load() == 2 })
}

// TestBus_MultipleSubscribersFanOut tests that every subscriber gets
// its own copy.
func TestBus_MultipleSubscribersFanOut(t *testing.T) {
	bus := NewBus(DefaultBusConfig)
	defer bus.Close()

	var a, b atomic.Int64
	subA := bus.SubscribeAll(func(Event) { a.Add(1) })
	subB := bus.Subscribe([]Type{TypeRunFailed}, func(Event) { b.Add(1) })
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	bus.Publish(New(TypeRunFailed, "run-1"))

	waitFor(t, func() bool { return a.Load() == 1 && b.Load() == 1 })
}

// TestBus_Unsubscribe tests that delivery stops after Unsubscribe.
func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(DefaultBusConfig)
	defer bus.Close()

	var received atomic.Int64
	sub := bus.SubscribeAll(func(Event) { received.Add(1) })

	bus.Publish(New(TypeRunStarted, "run-1"))
	waitFor(t, func() bool { return received.Load() == 1 })

	sub.Unsubscribe()
	bus.Publish(New(TypeRunStarted, "run-2"))

	// Give the (now stopped) delivery goroutine a chance to misbehave.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), received.Load())

	// Unsubscribe is idempotent.
	assert.NotPanics(t, sub.Unsubscribe)
}

// TestBus_PublishNeverBlocks tests the drop policy: a full subscriber
// buffer drops events and invokes OnDrop instead of stalling the
// publisher.
func TestBus_PublishNeverBlocks(t *testing.T) {
	var dropped atomic.Int64
	bus := NewBus(BusConfig{
		BufferSize: 1,
		OnDrop: func(evt Event, subscriberID int64) {
			dropped.Add(1)
		},
	})
	defer bus.Close()

	block := make(chan struct{})
	sub := bus.SubscribeAll(func(Event) {
		<-block // wedge the handler so the buffer fills
	})
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(New(TypeNodeCompleted, "run-1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	close(block)
	waitFor(t, func() bool { return dropped.Load() > 0 })
}

// TestBus_Close tests that a closed bus ignores publishes and new
// subscriptions.
func TestBus_Close(t *testing.T) {
	bus := NewBus(DefaultBusConfig)

	var received atomic.Int64
	bus.SubscribeAll(func(Event) { received.Add(1) })

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close()) // idempotent

	bus.Publish(New(TypeRunStarted, "run-1"))
	assert.Nil(t, bus.SubscribeAll(func(Event) {}))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), received.Load())
}

// TestBus_NilHandler tests that a nil handler yields no subscription.
func TestBus_NilHandler(t *testing.T) {
	bus := NewBus(DefaultBusConfig)
	defer bus.Close()

	assert.Nil(t, bus.SubscribeAll(nil))
	assert.Nil(t, bus.Subscribe([]Type{TypeRunStarted}, nil))
}

// TestBus_ConcurrentPublish tests parallel publishers against one
// subscriber.
func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(BusConfig{BufferSize: 1024})
	defer bus.Close()

	var received atomic.Int64
	sub := bus.SubscribeAll(func(Event) { received.Add(1) })
	defer sub.Unsubscribe()

	const publishers = 8
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				bus.Publish(New(TypeNodeCompleted, "run-1"))
			}
		}()
	}
	wg.Wait()

	waitFor(t, func() bool { return received.Load() == publishers*perPublisher })
}
