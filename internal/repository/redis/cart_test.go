package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func line(id string, pos int64, qty int) domain.CartLine {
	return domain.CartLine{
		ProductID: id,
		Name:      "Producto " + id,
		UnitPrice: 1000,
		Quantity:  qty,
		Position:  pos,
		AddedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

func TestCartRepository_ListKeepsPositionOrder(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", 0)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, line("VR001", 2, 1)))
	require.NoError(t, repo.Upsert(ctx, line("FR001", 1, 3)))
	require.NoError(t, repo.Upsert(ctx, line("PL001", 3, 1)))

	lines, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"FR001", "VR001", "PL001"},
		[]string{lines[0].ProductID, lines[1].ProductID, lines[2].ProductID})
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCartRepository_GetAndNotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", 0)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, line("FR001", 1, 2)))
	got, err := repo.Get(ctx, "FR001")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCartRepository_RejectsZeroQuantity(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", 0)

	err := repo.Upsert(context.Background(), line("FR001", 1, 0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.False(t, mr.Exists("cart:device-1:lines"))
}

func TestCartRepository_DeleteAndDeleteAll(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", 0)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, line("FR001", 1, 1)))
	require.NoError(t, repo.Upsert(ctx, line("FR002", 2, 1)))

	require.NoError(t, repo.Delete(ctx, "FR001"))
	require.NoError(t, repo.Delete(ctx, "not-there"))
	lines, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "FR002", lines[0].ProductID)

	require.NoError(t, repo.DeleteAll(ctx))
	lines, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.False(t, mr.Exists("cart:device-1:order"))
}

func TestCartRepository_TTLApplied(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", time.Hour)

	require.NoError(t, repo.Upsert(context.Background(), line("FR001", 1, 1)))
	assert.Equal(t, time.Hour, mr.TTL("cart:device-1:lines"))
	assert.Equal(t, time.Hour, mr.TTL("cart:device-1:order"))

	mr.FastForward(2 * time.Hour)
	lines, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartRepository_SessionsAreIsolated(t *testing.T) {
	client, _ := setupTestRedis(t)
	a := NewCartRepository(client, "a", 0)
	b := NewCartRepository(client, "b", 0)
	ctx := context.Background()

	require.NoError(t, a.Upsert(ctx, line("FR001", 1, 1)))
	lines, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartRepository_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewCartRepository(client, "device-1", 0)
	mr.Close()

	_, err := repo.List(context.Background())
	assert.Error(t, err)
}
