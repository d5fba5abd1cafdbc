// Package passlock serializes sync passes across processes. The job is run
// from cron; if a slow pass overruns the schedule, the next invocation must
// skip instead of racing concurrent writes into the store.
package passlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKey = "fleetsync:pass:lock"

// ErrHeld is returned by Acquire when another pass holds the lock.
var ErrHeld = fmt.Errorf("pass lock already held")

// Lock is a Redis SET NX lease with a TTL safety net: a crashed pass frees
// the lock when the TTL expires.
type Lock struct {
	redis *redis.Client
	ttl   time.Duration
	token string
}

// New creates a lock around an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Lock {
	return &Lock{redis: client, ttl: ttl}
}

// NewFromURL connects to Redis at url and returns a lock.
func NewFromURL(url string, ttl time.Duration) (*Lock, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), ttl), nil
}

// Acquire takes the lock or returns ErrHeld. The stored token ties the
// lease to this pass so Release cannot free somebody else's lock.
func (l *Lock) Acquire(ctx context.Context) error {
	token := uuid.New().String()
	ok, err := l.redis.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	l.token = token
	return nil
}

// Release frees the lock if this pass still owns it. A lock that expired
// and was re-acquired elsewhere is left alone.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}

	// Compare-and-delete so an expired lease is never stolen back.
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`)
	if err := script.Run(ctx, l.redis, []string{lockKey}, l.token).Err(); err != nil {
		return fmt.Errorf("release pass lock: %w", err)
	}
	l.token = ""
	return nil
}

// Close shuts down the underlying Redis connection.
func (l *Lock) Close() error {
	return l.redis.Close()
}
