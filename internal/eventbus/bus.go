// Package eventbus fans snapshots and other simulation events out to the
// telemetry, metrics and MQTT consumers.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity of a subscriber.
const DefaultBuffer = 8

// Bus is a publish/subscribe bus for events of type T. Publish never blocks:
// an event is dropped for a subscriber whose buffer is full.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

// New creates a Bus whose subscribers buffer up to buffer events.
// buffer <= 0 selects DefaultBuffer.
func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus[T]{buffer: buffer}
}

// Publish sends e to every subscriber.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber and returns its channel. The channel is
// closed immediately when the bus is already closed.
func (b *Bus[T]) Subscribe() <-chan T {
	return b.SubscribeBuffered(b.buffer)
}

// SubscribeBuffered is Subscribe with a subscriber-specific buffer size.
// buffer <= 0 selects the bus buffer.
func (b *Bus[T]) SubscribeBuffered(buffer int) <-chan T {
	if buffer <= 0 {
		buffer = b.buffer
	}
	ch := make(chan T, buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (b *Bus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes the bus and all subscriber channels.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
