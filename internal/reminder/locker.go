package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Locker provides a lock shared between scheduler instances. TryLock returns
// ok=false when another holder owns it; release is only non-nil when ok.
type Locker interface {
	TryLock(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

type nopLocker struct{}

func (nopLocker) TryLock(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

const defaultLockKey = "reminder:cycle-lock"

// RedisLocker is a SET NX PX lock with a random token; release deletes the
// key only while it still holds that token.
type RedisLocker struct {
	rdb *redis.Client
	key string
}

func NewRedisLocker(rdb *redis.Client, key string) *RedisLocker {
	if key == "" {
		key = defaultLockKey
	}
	return &RedisLocker{rdb: rdb, key: key}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward only while the key still holds our
// token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// TryLock takes the lock for ttl and keeps extending it every ttl/3 until
// release, so a cycle longer than ttl stays exclusive. A holder that dies
// stops extending and the key expires.
func (l *RedisLocker) TryLock(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, ttl/3, func() (bool, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := extendScript.Run(ctx, l.rdb, []string{l.key}, token, ttl.Milliseconds()).Int()
			return n == 1, err
		})
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err()
		})
	}
	return release, true, nil
}

// keepAlive calls extend every interval until stop closes or extend reports
// the lock is no longer held. Extend errors are retried on the next tick.
func keepAlive(stop <-chan struct{}, every time.Duration, extend func() (bool, error)) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := extend()
			if err == nil && !held {
				return
			}
		}
	}
}

var (
	_ Locker = nopLocker{}
	_ Locker = (*RedisLocker)(nil)
)
