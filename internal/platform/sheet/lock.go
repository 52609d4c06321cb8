package sheet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Locker serializes writers on a key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// LocalLocker serializes goroutines of one process.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.keys[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.keys[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker serializes writers across processes sharing one Redis. Locks
// expire after TTL so a crashed terminal cannot hold a medication forever.
type RedisLocker struct {
	client *redis.Client
	logger zerolog.Logger
	TTL    time.Duration
	Retry  time.Duration
	Prefix string
}

// NewRedisLocker connects to Redis. ttl must outlast every store call made
// while a lock is held.
func NewRedisLocker(ctx context.Context, url string, ttl time.Duration, logger zerolog.Logger) (*RedisLocker, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLocker{
		client: client,
		logger: logger,
		TTL:    ttl,
		Retry:  50 * time.Millisecond,
		Prefix: "medcab:lock:",
	}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.Prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.TTL).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(k, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(l.Retry):
		}
	}
}

// release deletes k only while it still holds token. A failure leaves the
// lock to expire after TTL.
func (l *RedisLocker) release(k, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := releaseScript.Run(ctx, l.client, []string{k}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Error().Err(err).Str("lock", k).Dur("ttl", l.TTL).Msg("failed to release lock")
	}
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}
