package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateBoundsConcurrency(t *testing.T) {
	t.Parallel()

	gate := New(Config{MaxInFlight: 3})
	require.Equal(t, 3, gate.Size())

	var (
		current atomic.Int64
		peak    atomic.Int64
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, gate.Acquire(context.Background()))
			defer gate.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak.Load(), int64(3))
	require.Positive(t, peak.Load())
}

func TestAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	gate := New(Config{MaxInFlight: 1})
	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := gate.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	gate.Release()
}

func TestPauseReturnsOnCancel(t *testing.T) {
	t.Parallel()

	gate := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	gate.Pause(ctx, time.Second)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestJitterStaysInWindow(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		d := Jitter(500*time.Millisecond, 1500*time.Millisecond)
		require.GreaterOrEqual(t, d, 500*time.Millisecond)
		require.Less(t, d, 1500*time.Millisecond)
	}
	require.Equal(t, time.Duration(0), Jitter(0, 0))
	require.Equal(t, time.Second, Jitter(time.Second, time.Second))
}
