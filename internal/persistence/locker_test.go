package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex(0)
	var inside, maxInside int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(context.Background(), "emp-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := NewKeyedMutex(50 * time.Millisecond)
	releaseA, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := m.Acquire(context.Background(), "b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutexWaitBudget(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)
	release, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), "a")
	assert.True(t, errors.Is(err, ErrLockNotAcquired))

	release()
	release() // second release is a no-op

	again, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	again()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	m := NewKeyedMutex(0)
	release, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Acquire(ctx, "a")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestKeyedMutexDropsIdleKeys(t *testing.T) {
	m := NewKeyedMutex(20 * time.Millisecond)

	for _, key := range []string{"a", "b", "not-a-uuid"} {
		release, err := m.Acquire(context.Background(), key)
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, m.size())

	release, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	_, err = m.Acquire(context.Background(), "a")
	require.ErrorIs(t, err, ErrLockNotAcquired)
	assert.Equal(t, 1, m.size(), "held key keeps its slot after a waiter gives up")

	release()
	assert.Equal(t, 0, m.size())
}

func TestKeyedMutexWaiterKeepsSlot(t *testing.T) {
	m := NewKeyedMutex(0)
	release, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)

	acquired := make(chan ReleaseFunc)
	go func() {
		next, err := m.Acquire(context.Background(), "a")
		if assert.NoError(t, err) {
			acquired <- next
		}
	}()

	release()
	next := <-acquired
	assert.Equal(t, 1, m.size())
	next()
	assert.Equal(t, 0, m.size())
}
