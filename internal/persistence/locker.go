package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when a lock stays held past the wait budget.
var ErrLockNotAcquired = errors.New("lock not acquired")

// ReleaseFunc releases a held lock.
type ReleaseFunc func()

// RedisLocker implements advisory locks with SET NX PX and a token-checked release.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker builds a locker. ttl bounds how long a crashed holder blocks
// others; wait bounds how long Acquire polls before giving up.
func NewRedisLocker(client *redis.Client, prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, wait: wait, retry: 25 * time.Millisecond}
}

// releaseScript deletes the lock only if it is still owned by the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire blocks until the lock for key is held, the wait budget elapses or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	lockKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// KeyedMutex is an in-process lock per key, used when Redis is not available.
// A key's slot lives only while someone holds or waits for it.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keyedSlot
	wait  time.Duration
}

type keyedSlot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a KeyedMutex. A zero wait blocks until ctx ends.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*keyedSlot), wait: wait}
}

// Acquire blocks until the lock for key is held.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	slot := m.ref(key)

	var timeout <-chan time.Time
	if m.wait > 0 {
		timer := time.NewTimer(m.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				m.unref(key)
			})
		}, nil
	case <-timeout:
		m.unref(key)
		return nil, ErrLockNotAcquired
	case <-ctx.Done():
		m.unref(key)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) ref(key string) *keyedSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		slot = &keyedSlot{ch: make(chan struct{}, 1)}
		m.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (m *KeyedMutex) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs <= 0 {
		delete(m.slots, key)
	}
}

// size reports how many keys currently have a slot.
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
