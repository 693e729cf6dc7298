package pipeline

import (
	"sync"
)

// Bus provides pub/sub for tick results.
// Subscribers receive the outcome of every processed frame.
type Bus struct {
	subscribers map[*busSubscription]bool
	mu          sync.RWMutex
}

type busSubscription struct {
	channel chan *TickResult
	handler TickHandler
}

// NewBus creates a new tick bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[*busSubscription]bool),
	}
}

// Subscribe registers a handler for tick results.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(handler TickHandler) func() {
	sub := &busSubscription{handler: handler}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()
	}
}

// SubscribeChannel returns a channel that receives tick results.
// The channel has the specified buffer size.
// Returns the channel and an unsubscribe function.
func (b *Bus) SubscribeChannel(bufferSize int) (<-chan *TickResult, func()) {
	if bufferSize <= 0 {
		bufferSize = 10
	}

	ch := make(chan *TickResult, bufferSize)
	sub := &busSubscription{channel: ch}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[sub]; ok {
			delete(b.subscribers, sub)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish sends a tick result to all subscribers.
// Handlers are called synchronously to preserve frame ordering; channel
// subscribers that cannot keep up skip results rather than block the loop.
func (b *Bus) Publish(result *TickResult) {
	if result == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		if sub.handler != nil {
			sub.handler.OnTick(result)
		} else if sub.channel != nil {
			select {
			case sub.channel <- result:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes all subscribers and closes channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub.channel != nil {
			close(sub.channel)
		}
		delete(b.subscribers, sub)
	}
}
