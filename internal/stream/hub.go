// Package stream provides a small publish/subscribe hub used to push
// snapshots of cart, product and order state to interested readers.
package stream

import (
	"context"
	"sync"
)

// Hub fans values out to subscribers. Each subscriber channel holds at most
// one value: a slow reader skips intermediate values and only sees the
// newest one. New subscribers receive the last published value, if any.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]chan T
	nextID  uint64
	last    T
	hasLast bool
	closed  bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]chan T)}
}

// Publish records v as the latest value and delivers it to every subscriber.
// It never blocks on a slow subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.last = v
	h.hasLast = true
	for _, ch := range h.subs {
		offer(ch, v)
	}
}

// offer replaces whatever is buffered in ch with v. Only Publish sends on
// subscriber channels and it holds the lock, so after the drain there is room.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Subscribe registers a new subscriber. The returned channel is closed when
// cancel is called, when ctx is done, or when the hub is closed.
func (h *Hub[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	ch := make(chan T, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	if h.hasLast {
		ch <- h.last
	}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { h.remove(id) })
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return ch, func() {
		stop()
		unsubscribe()
	}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Latest returns the last published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}

// Subscribers returns the number of active subscribers.
func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later Publish calls are ignored and
// later subscribers get an already closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
