package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func assertClosed[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestSubscribe_NoValueBeforePublish(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(context.Background())
	defer cancel()

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestSubscribe_ReplaysLast(t *testing.T) {
	h := NewHub[string]()
	h.Publish("a")
	h.Publish("b")

	ch, cancel := h.Subscribe(context.Background())
	defer cancel()
	assert.Equal(t, "b", receive(t, ch))
}

func TestPublish_FansOut(t *testing.T) {
	h := NewHub[int]()
	ch1, c1 := h.Subscribe(context.Background())
	ch2, c2 := h.Subscribe(context.Background())
	defer c1()
	defer c2()

	h.Publish(7)
	assert.Equal(t, 7, receive(t, ch1))
	assert.Equal(t, 7, receive(t, ch2))
	assert.Equal(t, 2, h.Subscribers())
}

func TestPublish_ConflatesForSlowReader(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(context.Background())
	defer cancel()

	for i := 1; i <= 10; i++ {
		h.Publish(i)
	}
	assert.Equal(t, 10, receive(t, ch))

	select {
	case v := <-ch:
		t.Fatalf("expected no buffered value, got %d", v)
	default:
	}
}

func TestCancel_ClosesAndRemoves(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(context.Background())
	cancel()
	cancel()

	assertClosed(t, ch)
	assert.Zero(t, h.Subscribers())
	h.Publish(1)
}

func TestContextCancel_Unsubscribes(t *testing.T) {
	h := NewHub[int]()
	ctx, cancelCtx := context.WithCancel(context.Background())
	ch, cancel := h.Subscribe(ctx)
	defer cancel()

	cancelCtx()
	assertClosed(t, ch)
	assert.Eventually(t, func() bool { return h.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestClose(t *testing.T) {
	h := NewHub[int]()
	ch, cancel := h.Subscribe(context.Background())
	defer cancel()

	h.Close()
	assertClosed(t, ch)

	late, lateCancel := h.Subscribe(context.Background())
	defer lateCancel()
	assertClosed(t, late)

	h.Publish(3)
	_, ok := h.Latest()
	assert.False(t, ok)
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	h := NewHub[int]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			h.Publish(n)
		}(i)
		go func() {
			defer wg.Done()
			_, cancel := h.Subscribe(context.Background())
			cancel()
		}()
	}
	wg.Wait()

	_, ok := h.Latest()
	assert.True(t, ok)
	assert.Zero(t, h.Subscribers())
}
