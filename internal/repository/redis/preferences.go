package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// PreferencesRepository implements repository.PreferencesRepository as a
// Redis hash.
type PreferencesRepository struct {
	client *redis.Client
	key    string
}

// NewPreferencesRepository creates a Redis-backed preferences store for session.
func NewPreferencesRepository(client *redis.Client, session string) *PreferencesRepository {
	return &PreferencesRepository{client: client, key: "prefs:" + session}
}

// Get returns the stored value for key.
func (r *PreferencesRepository) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis hget preference %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key.
func (r *PreferencesRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset preference %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (r *PreferencesRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel preferences: %w", err)
	}
	return nil
}
