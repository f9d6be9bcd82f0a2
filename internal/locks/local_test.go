package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "seat:PS5:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots)
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	unlockA, err := l.Lock(context.Background(), "seat:PS5:1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "seat:PS5:2", FoodKey("chips"))
	require.NoError(t, err)
	unlockB()
}

func TestLocalLocker_TimesOut(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "seat:PC:3")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "seat:PC:3")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock() // second call is a no-op

	unlock2, err := l.Lock(context.Background(), "seat:PC:3")
	require.NoError(t, err)
	unlock2()
}

func TestLocalLocker_PartialAcquireReleases(t *testing.T) {
	l := NewLocalLocker()
	unlockFood, err := l.Lock(context.Background(), FoodKey("cola"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "seat:PS5:1", FoodKey("cola"))
	require.ErrorIs(t, err, ErrLockTimeout)

	// the seat key taken before the timeout must be free again
	unlockSeat, err := l.Lock(context.Background(), "seat:PS5:1")
	require.NoError(t, err)
	unlockSeat()
	unlockFood()
}
