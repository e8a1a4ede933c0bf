// Package watch decorates repositories so that every successful write
// pushes a fresh snapshot to subscribers.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Catalina-leal/Huertohogarapp/internal/stream"
)

// Watcher reloads a snapshot with load and publishes it on a hub. Loads and
// publishes are serialized by mu, and writes counts Refresh calls so a
// snapshot is only reused when no write happened after it was loaded.
type Watcher[T any] struct {
	name   string
	hub    *stream.Hub[T]
	load   func(ctx context.Context) (T, error)
	logger *slog.Logger

	writes atomic.Uint64

	mu      sync.Mutex
	loaded  uint64 // writes seen before the published snapshot was loaded
	current bool
}

// NewWatcher creates a watcher named name (used in logs).
func NewWatcher[T any](name string, load func(ctx context.Context) (T, error), logger *slog.Logger) *Watcher[T] {
	return &Watcher[T]{
		name:   name,
		hub:    stream.NewHub[T](),
		load:   load,
		logger: logger,
	}
}

// Refresh reloads the snapshot after a write. With nobody listening the
// reload is left to the next Subscribe. A failed reload is logged and the
// previous snapshot stays in place.
func (w *Watcher[T]) Refresh(ctx context.Context) {
	w.writes.Add(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hub.Subscribers() == 0 {
		return
	}
	w.reloadLocked(context.WithoutCancel(ctx))
}

// reloadLocked must be called with mu held.
func (w *Watcher[T]) reloadLocked(ctx context.Context) {
	seen := w.writes.Load()
	if w.current && w.loaded == seen {
		return
	}

	v, err := w.load(ctx)
	if err != nil {
		w.current = false
		w.logger.WarnContext(ctx, "failed to refresh snapshot",
			slog.String("stream", w.name),
			slog.String("error", err.Error()),
		)
		return
	}
	w.loaded = seen
	w.current = true
	w.hub.Publish(v)
}

// Subscribe returns a stream that starts with the current snapshot. Writes
// racing with the subscription are delivered after it.
func (w *Watcher[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloadLocked(ctx)
	return w.hub.Subscribe(ctx)
}

// Close ends every subscription.
func (w *Watcher[T]) Close() {
	w.hub.Close()
}
