package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_BurstThenThrottle(t *testing.T) {
	// 60/min = 1/sec with burst 60, so 5 immediate acquires must not block
	l := New(map[string]int{"llm": 60}, 60, time.Second)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(context.Background(), "llm"))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestAcquire_TimesOut(t *testing.T) {
	l := New(map[string]int{"smtp": 1}, 60, 50*time.Millisecond)

	// burst of 1: first call takes the only token
	require.NoError(t, l.Acquire(context.Background(), "smtp"))

	err := l.Acquire(context.Background(), "smtp")
	assert.ErrorIs(t, err, ErrAcquireTimeout)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New(map[string]int{"smtp": 1}, 60, time.Minute)
	require.NoError(t, l.Acquire(context.Background(), "smtp"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx, "smtp")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_KeysAreIndependent(t *testing.T) {
	l := New(map[string]int{"smtp": 1}, 600, 50*time.Millisecond)
	require.NoError(t, l.Acquire(context.Background(), "smtp"))

	// exhausting "smtp" must not affect "llm"
	assert.NoError(t, l.Acquire(context.Background(), "llm"))
}

func TestAcquire_ConcurrentCallers(t *testing.T) {
	l := New(nil, 600, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Acquire(context.Background(), "scrape:indeed")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
