package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Availability caches computed slot lists per barber, date and service
// duration. Implementations must fail open: a cache error behaves as a miss
// and never reaches the caller.
type Availability interface {
	Get(ctx context.Context, barberID uint, date string, durationMin int) ([]string, bool)
	Set(ctx context.Context, barberID uint, date string, durationMin int, slots []string)
	InvalidateBarberDate(ctx context.Context, barberID uint, date string)
	InvalidateBarber(ctx context.Context, barberID uint)
	InvalidateAll(ctx context.Context)
}

const keyPrefix = "availability"

func key(barberID uint, date string, durationMin int) string {
	return fmt.Sprintf("%s:%d:%s:%d", keyPrefix, barberID, date, durationMin)
}

// ======================================================
// REDIS
// ======================================================

type RedisAvailability struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisAvailability(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisAvailability {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisAvailability{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *RedisAvailability) Get(ctx context.Context, barberID uint, date string, durationMin int) ([]string, bool) {
	raw, err := c.rdb.Get(ctx, key(barberID, date, durationMin)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("availability cache get failed")
		}
		return nil, false
	}

	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache entry unreadable")
		return nil, false
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, true
}

func (c *RedisAvailability) Set(ctx context.Context, barberID uint, date string, durationMin int, slots []string) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key(barberID, date, durationMin), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("availability cache set failed")
	}
}

func (c *RedisAvailability) InvalidateBarberDate(ctx context.Context, barberID uint, date string) {
	c.deletePattern(ctx, fmt.Sprintf("%s:%d:%s:*", keyPrefix, barberID, date))
}

func (c *RedisAvailability) InvalidateBarber(ctx context.Context, barberID uint) {
	c.deletePattern(ctx, fmt.Sprintf("%s:%d:*", keyPrefix, barberID))
}

func (c *RedisAvailability) InvalidateAll(ctx context.Context) {
	c.deletePattern(ctx, keyPrefix+":*")
}

func (c *RedisAvailability) deletePattern(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.logger.Warn().Err(err).Str("pattern", pattern).Msg("availability cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn().Err(err).Str("pattern", pattern).Msg("availability cache delete failed")
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// ======================================================
// NOP
// ======================================================

// Nop never stores anything; every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, uint, string, int) ([]string, bool) { return nil, false }
func (Nop) Set(context.Context, uint, string, int, []string)      {}
func (Nop) InvalidateBarberDate(context.Context, uint, string)    {}
func (Nop) InvalidateBarber(context.Context, uint)                {}
func (Nop) InvalidateAll(context.Context)                         {}

var (
	_ Availability = (*RedisAvailability)(nil)
	_ Availability = Nop{}
)
