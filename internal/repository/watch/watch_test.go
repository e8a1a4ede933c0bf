package watch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository/sqlite"
	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
)

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok)
		return v
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}
	var zero T
	return zero
}

func newStores(t *testing.T) (*CartRepository, *ProductRepository, *OrderRepository) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log := logger.Discard()
	return NewCartRepository(sqlite.NewCartRepository(db), log),
		NewProductRepository(sqlite.NewProductRepository(db), log),
		NewOrderRepository(sqlite.NewOrderRepository(db), log)
}

func TestCartRepository_PushesOnWrite(t *testing.T) {
	cart, _, _ := newStores(t)
	ctx := context.Background()

	ch, cancel := cart.Subscribe(ctx)
	defer cancel()
	assert.True(t, next(t, ch).IsEmpty())

	require.NoError(t, cart.Upsert(ctx, domain.CartLine{ProductID: "FR001", Name: "Manzanas", UnitPrice: 1200, Quantity: 2, Position: 1}))
	snap := next(t, ch)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, int64(2400), snap.Subtotal())

	require.NoError(t, cart.DeleteAll(ctx))
	assert.True(t, next(t, ch).IsEmpty())
}

func TestCartRepository_LateSubscriberSeesCurrentState(t *testing.T) {
	cart, _, _ := newStores(t)
	ctx := context.Background()

	require.NoError(t, cart.Upsert(ctx, domain.CartLine{ProductID: "FR001", Name: "Manzanas", UnitPrice: 1200, Quantity: 1, Position: 1}))

	ch, cancel := cart.Subscribe(ctx)
	defer cancel()
	assert.Equal(t, 1, next(t, ch).ItemCount())
}

func TestProductRepository_PushesCatalog(t *testing.T) {
	_, products, _ := newStores(t)
	ctx := context.Background()

	ch, cancel := products.Subscribe(ctx)
	defer cancel()
	assert.Len(t, next(t, ch), 9)

	require.NoError(t, products.Delete(ctx, "PL001"))
	assert.Len(t, next(t, ch), 8)
}

func TestOrderRepository_PushesOnCreateAndStatus(t *testing.T) {
	_, _, orders := newStores(t)
	ctx := context.Background()

	ch, cancel := orders.Subscribe(ctx)
	defer cancel()
	assert.Empty(t, next(t, ch))

	now := time.Now().UTC()
	o := &domain.Order{ID: "o1", UserEmail: "ana@huertohogar.cl", Status: domain.StatusConfirmed, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, orders.Create(ctx, o))
	got := next(t, ch)
	require.Len(t, got, 1)

	require.NoError(t, orders.UpdateStatus(ctx, "o1", domain.StatusDelivered, "", now))
	got = next(t, ch)
	assert.Equal(t, domain.StatusDelivered, got[0].Status)
}

// --- failing loader ---

type failingCart struct {
	repository.CartRepository
}

func (failingCart) List(context.Context) ([]domain.CartLine, error) {
	return nil, errors.New("disk I/O error")
}

func (failingCart) Upsert(context.Context, domain.CartLine) error { return nil }

func TestCartRepository_FailedReloadKeepsStreamOpen(t *testing.T) {
	cart := NewCartRepository(failingCart{}, logger.Discard())
	ctx := context.Background()

	ch, cancel := cart.Subscribe(ctx)
	defer cancel()

	require.NoError(t, cart.Upsert(ctx, domain.CartLine{ProductID: "FR001", Quantity: 1}))
	select {
	case v, ok := <-ch:
		t.Fatalf("unexpected snapshot %v (open=%v)", v, ok)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- concurrent writes ---

func TestWatcher_WriteDuringFirstLoadReachesSubscribers(t *testing.T) {
	var version atomic.Int64
	version.Store(1)

	var calls atomic.Int32
	loading := make(chan struct{})
	release := make(chan struct{})
	w := NewWatcher("versions", func(context.Context) (int64, error) {
		v := version.Load()
		if calls.Add(1) == 1 {
			close(loading)
			<-release
		}
		return v, nil
	}, logger.Discard())
	defer w.Close()

	type subscription struct {
		ch     <-chan int64
		cancel func()
	}
	subscribed := make(chan subscription, 1)
	go func() {
		ch, cancel := w.Subscribe(context.Background())
		subscribed <- subscription{ch, cancel}
	}()

	<-loading
	version.Store(2)
	refreshed := make(chan struct{})
	go func() {
		w.Refresh(context.Background())
		close(refreshed)
	}()
	close(release)

	first := <-subscribed
	defer first.cancel()
	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("refresh did not finish")
	}
	assert.Equal(t, int64(2), next(t, first.ch))

	late, cancel := w.Subscribe(context.Background())
	defer cancel()
	assert.Equal(t, int64(2), next(t, late))
}

func TestWatcher_ReusesSnapshotWithoutWrites(t *testing.T) {
	var calls atomic.Int32
	w := NewWatcher("count", func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}, logger.Discard())
	defer w.Close()

	ch1, cancel1 := w.Subscribe(context.Background())
	defer cancel1()
	ch2, cancel2 := w.Subscribe(context.Background())
	defer cancel2()

	assert.Equal(t, int32(1), next(t, ch1))
	assert.Equal(t, int32(1), next(t, ch2))

	w.Refresh(context.Background())
	assert.Equal(t, int32(2), next(t, ch1))
	assert.Equal(t, int32(2), next(t, ch2))
}
