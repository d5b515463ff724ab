package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerBusyKeyExhaustsWait(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, "lock:employee:", time.Second, 60*time.Millisecond)

	release, err := l.Acquire(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:employee:emp-1"))

	started := time.Now()
	_, err = l.Acquire(context.Background(), "emp-1")
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.GreaterOrEqual(t, time.Since(started), 60*time.Millisecond)

	other, err := l.Acquire(context.Background(), "emp-2")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists("lock:employee:emp-1"))

	again, err := l.Acquire(context.Background(), "emp-1")
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseKeepsSuccessorsLock(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, "lock:", 100*time.Millisecond, 0)

	first, err := l.Acquire(context.Background(), "emp-1")
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)
	require.False(t, mr.Exists("lock:emp-1"), "ttl frees a lock whose holder stalled")

	second, err := l.Acquire(context.Background(), "emp-1")
	require.NoError(t, err)
	token, err := mr.Get("lock:emp-1")
	require.NoError(t, err)

	first()
	got, err := mr.Get("lock:emp-1")
	require.NoError(t, err, "stale release must not delete the new holder's lock")
	assert.Equal(t, token, got)

	second()
	assert.False(t, mr.Exists("lock:emp-1"))
}

func TestRedisLockerHonoursContext(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedisLocker(client, "lock:", time.Second, time.Minute)

	release, err := l.Acquire(context.Background(), "emp-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "emp-1")
	assert.Error(t, err)
}

func TestRedisWrapperLockerUsesPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	r := &Redis{Client: client, LockPrefix: "lock:employee:"}

	release, err := r.NewLocker(time.Second, 0).Acquire(context.Background(), "emp-9")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:employee:emp-9"))
	release()
	require.NoError(t, r.Ping(context.Background()))
}
