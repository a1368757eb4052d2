package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c0dezer019/Presence/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastStoreRetry(t *testing.T) {
	t.Helper()

	initial, maxInterval := storeRetryInitialInterval, storeRetryMaxInterval
	storeRetryInitialInterval = time.Millisecond
	storeRetryMaxInterval = 5 * time.Millisecond
	t.Cleanup(func() {
		storeRetryInitialInterval, storeRetryMaxInterval = initial, maxInterval
	})
}

func TestRetryStoreRetriesUnavailable(t *testing.T) {
	fastStoreRetry(t)

	attempts := 0
	got, err := RetryStore(context.Background(), zap.NewNop(), "test", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, model.NewStoreUnavailable("GET", errors.New("connection refused"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestRetryStoreGivesUp(t *testing.T) {
	fastStoreRetry(t)

	attempts := 0
	_, err := RetryStore(context.Background(), zap.NewNop(), "test", func(ctx context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, model.NewStoreUnavailable("GET", errors.New("connection refused"))
	})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Equal(t, int(storeRetryMaxRetries)+1, attempts)
}

func TestRetryStoreStopsOnOtherErrors(t *testing.T) {
	fastStoreRetry(t)

	attempts := 0
	_, err := RetryStore(context.Background(), zap.NewNop(), "test", func(ctx context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, model.NewGuildNotBootstrapped("1")
	})
	assert.ErrorIs(t, err, model.ErrGuildNotBootstrapped)
	assert.Equal(t, 1, attempts)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("a")
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
	assert.Zero(t, locks.size(), "idle keys are released")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
	unlockA()
}
