// Package eventbus provides a small in-memory fan-out used to decouple the
// orchestrator, the realtime channel and their subscribers.
package eventbus

import (
	"sync"
)

// Bus fans values out to subscribers.
//
// Contract:
//   - Publish never blocks.
//   - Subscribers get buffered channels; a slow subscriber drops values.
//   - A conflating bus drops the oldest buffered value instead of the newest,
//     so subscribers of state snapshots always end up with the latest one.
type Bus[T any] struct {
	mu       sync.RWMutex
	subs     map[uint64]chan T
	seq      uint64
	closed   bool
	conflate bool
	onDrop   []func(T)
}

// New returns a bus that drops new values for full subscribers.
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uint64]chan T)}
}

// NewConflating returns a bus that keeps the most recent values.
func NewConflating[T any]() *Bus[T] {
	b := New[T]()
	b.conflate = true
	return b
}

// OnDrop registers a hook that fires when a value could not be delivered.
func (b *Bus[T]) OnDrop(fn func(T)) {
	b.mu.Lock()
	b.onDrop = append(b.onDrop, fn)
	b.mu.Unlock()
}

// Publish delivers v to every subscriber without blocking.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, ch := range b.subs {
		if b.deliver(ch, v) {
			continue
		}
		for _, fn := range b.onDrop {
			fn(v)
		}
	}
}

func (b *Bus[T]) deliver(ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
	}
	if !b.conflate {
		return false
	}

	// Make room by discarding the oldest buffered value.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

// Subscribe returns a buffered channel and an idempotent unsubscribe func.
// The channel is closed on unsubscribe or when the bus is closed.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
