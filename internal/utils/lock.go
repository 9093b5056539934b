package utils

import (
	"context"      // Context for lock acquisition
	"crypto/rand"  // Lock owner tokens
	"encoding/hex" // Token encoding
	"errors"       // Sentinel errors
	"sync"         // In-process mutexes
	"time"         // Lease and retry durations

	"github.com/redis/go-redis/v9" // Redis client
)

// ErrLockTimeout is returned when a lock could not be acquired before the context ended
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker serializes work per key. Different keys never contend.
type Locker interface {
	// Lock blocks until key is held or ctx is done, and returns the release func.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{} // Buffered(1), holds a token while locked
	refs int           // Waiters plus holder
}

// NewKeyedMutex returns an empty in-process Locker
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock implements Locker
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key) // Drop idle keys
	}
}

// unlockScript deletes the key only if it still holds our token
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every replica using the same Redis
type RedisLocker struct {
	rdb   *redis.Client
	lease time.Duration // Auto-expiry in case the holder dies
	retry time.Duration // Poll interval while waiting
}

// NewRedisLocker builds a Redis-backed Locker
func NewRedisLocker(rdb *redis.Client, lease time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, lease: lease, retry: 25 * time.Millisecond}
}

// Lock implements Locker with SET NX PX and a compare-and-delete release
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(buf) // Owner token
	redisKey := "lock:" + key        // Namespaced key

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.lease).Result()
		if err != nil && ctx.Err() == nil {
			return nil, err // Redis failure
		}
		if ok {
			return func() {
				// Release with a fresh context so a cancelled request still unlocks
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = unlockScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}
