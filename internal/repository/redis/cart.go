package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/pkg/database"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Lines
// live in a hash keyed by product id; a sorted set scored by Position keeps
// their insertion order.
type CartRepository struct {
	client   *redis.Client
	linesKey string
	orderKey string
	ttl      time.Duration
}

// NewCartRepository creates a Redis-backed cart for session. A zero ttl
// keeps the cart until it is cleared.
func NewCartRepository(client *redis.Client, session string, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client:   client,
		linesKey: keyPrefix + session + ":lines",
		orderKey: keyPrefix + session + ":order",
		ttl:      ttl,
	}
}

// List returns all cart lines in insertion order.
func (r *CartRepository) List(ctx context.Context) (lines []domain.CartLine, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "ListCartLines", "ZRANGE "+r.orderKey)
	defer func() { end(err) }()

	ids, err := r.client.ZRange(ctx, r.orderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange cart order: %w", err)
	}

	lines = make([]domain.CartLine, 0, len(ids))
	if len(ids) == 0 {
		return lines, nil
	}

	values, err := r.client.HMGet(ctx, r.linesKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget cart lines: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Order entry without a line; skip it rather than fail the read.
			continue
		}
		var line domain.CartLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("unmarshal cart line %s: %w", ids[i], err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Get returns the line for productID.
func (r *CartRepository) Get(ctx context.Context, productID string) (*domain.CartLine, error) {
	data, err := r.client.HGet(ctx, r.linesKey, productID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart line", productID)
		}
		return nil, fmt.Errorf("redis hget cart line: %w", err)
	}

	var line domain.CartLine
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, fmt.Errorf("unmarshal cart line: %w", err)
	}
	return &line, nil
}

// Upsert writes the line and its position in one MULTI/EXEC.
func (r *CartRepository) Upsert(ctx context.Context, line domain.CartLine) (err error) {
	if line.Quantity < 1 {
		return apperrors.InvalidInput("cart line quantity must be at least 1")
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal cart line: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "UpsertCartLine", "HSET "+r.linesKey)
	defer func() { end(err) }()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.linesKey, line.ProductID, data)
		pipe.ZAdd(ctx, r.orderKey, redis.Z{Score: float64(line.Position), Member: line.ProductID})
		if r.ttl > 0 {
			pipe.Expire(ctx, r.linesKey, r.ttl)
			pipe.Expire(ctx, r.orderKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert cart line: %w", err)
	}
	return nil
}

// Delete removes the line for productID, if any.
func (r *CartRepository) Delete(ctx context.Context, productID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.linesKey, productID)
		pipe.ZRem(ctx, r.orderKey, productID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete cart line: %w", err)
	}
	return nil
}

// DeleteAll removes the whole cart.
func (r *CartRepository) DeleteAll(ctx context.Context) error {
	if err := r.client.Del(ctx, r.linesKey, r.orderKey).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
