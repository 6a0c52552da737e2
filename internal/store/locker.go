package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants short-lived exclusive leases on a key. release is a no-op
// when ok is false.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX leases
type RedisLocker struct {
	redis *redis.Client
}

func NewRedisLocker(redisClient *redis.Client) *RedisLocker {
	return &RedisLocker{redis: redisClient}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)
	token := uuid.New().String()

	ok, err := l.redis.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		releaseScript.Run(context.WithoutCancel(ctx), l.redis, []string{lockKey}, token)
	}
	return release, true, nil
}

// MemoryLocker implements Locker within one process
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]lease), now: time.Now}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expires) {
		return func() {}, false, nil
	}
	token := uuid.New().String()
	l.leases[key] = lease{token: token, expires: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
	}
	return release, true, nil
}
