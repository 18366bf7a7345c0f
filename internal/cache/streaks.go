package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreakCache stores computed streaks in Redis so the habit list endpoint
// does not recompute every habit's streak on each request. Entries are
// written by the worker and invalidated whenever a completion changes.
type StreakCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStreakCache creates a streak cache with the given entry TTL.
func NewStreakCache(client *redis.Client, ttl time.Duration) *StreakCache {
	return &StreakCache{
		client: client,
		ttl:    ttl,
	}
}

func streakKey(habitID uuid.UUID) string {
	return "streak:" + habitID.String()
}

// Get returns the cached streak for a habit. The second return value
// reports whether a cached value was present.
func (c *StreakCache) Get(ctx context.Context, habitID uuid.UUID) (int, bool, error) {
	val, err := c.client.Get(ctx, streakKey(habitID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get cached streak: %w", err)
	}

	streak, err := strconv.Atoi(val)
	if err != nil {
		// Corrupt entry, treat as a miss.
		return 0, false, nil
	}
	return streak, true, nil
}

// Set stores the streak for a habit.
func (c *StreakCache) Set(ctx context.Context, habitID uuid.UUID, streak int) error {
	if err := c.client.Set(ctx, streakKey(habitID), strconv.Itoa(streak), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache streak: %w", err)
	}
	return nil
}

// Invalidate drops the cached streak for a habit. Called when a completion
// is marked or unmarked so reads never serve a stale value while the
// refresh job is pending.
func (c *StreakCache) Invalidate(ctx context.Context, habitID uuid.UUID) error {
	if err := c.client.Del(ctx, streakKey(habitID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached streak: %w", err)
	}
	return nil
}
