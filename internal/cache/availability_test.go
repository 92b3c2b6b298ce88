package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestKey(t *testing.T) {
	assert.Equal(t, "availability:7:2025-06-10:60", key(7, "2025-06-10", 60))
}

func TestRedisAvailability_FailsOpen(t *testing.T) {
	c := NewRedisAvailability(unreachableRedis(t), time.Minute, zerolog.Nop())
	ctx := context.Background()

	c.Set(ctx, 1, "2025-06-10", 30, []string{"09:00"})
	slots, ok := c.Get(ctx, 1, "2025-06-10", 30)

	assert.False(t, ok)
	assert.Nil(t, slots)

	assert.NotPanics(t, func() {
		c.InvalidateBarberDate(ctx, 1, "2025-06-10")
		c.InvalidateBarber(ctx, 1)
		c.InvalidateAll(ctx)
	})
}

func TestNop(t *testing.T) {
	var c Availability = Nop{}
	ctx := context.Background()

	c.Set(ctx, 1, "2025-06-10", 30, []string{"09:00"})
	_, ok := c.Get(ctx, 1, "2025-06-10", 30)

	assert.False(t, ok)
}
