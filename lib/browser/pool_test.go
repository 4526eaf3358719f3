package browser_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"radar-scraping/lib/browser"
	"radar-scraping/lib/browser/browsertest"
	"radar-scraping/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, cap int, acquireTimeout time.Duration) (*browser.Pool, *atomic.Int64) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/browser")
	t.Cleanup(cleanup)

	var created atomic.Int64
	pool := browser.NewPool(browser.PoolOptions{
		Cap:            cap,
		AcquireTimeout: acquireTimeout,
		Factory: func(ctx context.Context) (browser.Driver, error) {
			created.Add(1)
			return &browsertest.FakeDriver{}, nil
		},
	})
	t.Cleanup(pool.Close)
	return pool, &created
}

func TestAcquireReusesSessions(t *testing.T) {
	pool, created := newTestPool(t, 2, time.Second)
	ctx := context.Background()

	sess, err := pool.Acquire(ctx)
	require.NoError(t, err)
	first := sess.Id
	pool.Release(sess)

	sess, err = pool.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, first, sess.Id)
	require.EqualValues(t, 1, created.Load())
	pool.Release(sess)

	require.Equal(t, 0, pool.Leased())
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	pool, _ := newTestPool(t, 1, time.Millisecond*50)
	ctx := context.Background()

	sess, err := pool.Acquire(ctx)
	require.NoError(t, err)

	_, err = pool.Acquire(ctx)
	require.ErrorIs(t, err, browser.ErrPoolExhausted)

	pool.Release(sess)
	require.Equal(t, 0, pool.Leased())
}

func TestPoisonAllowsReplacement(t *testing.T) {
	pool, created := newTestPool(t, 1, time.Second)
	ctx := context.Background()

	sess, err := pool.Acquire(ctx)
	require.NoError(t, err)
	drv := sess.Driver().(*browsertest.FakeDriver)
	pool.Poison(sess)
	require.True(t, drv.Closed())

	replacement, err := pool.Acquire(ctx)
	require.NoError(t, err)
	require.NotEqual(t, sess.Id, replacement.Id)
	require.EqualValues(t, 2, created.Load())
	pool.Release(replacement)
}

// pool size 1, two concurrent borrowers: the second blocks until the
// first releases, and nobody deadlocks.
func TestSecondBorrowerBlocksUntilRelease(t *testing.T) {
	pool, _ := newTestPool(t, 1, time.Second*5)
	ctx := context.Background()

	sess, err := pool.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan *browser.Session)
	go func() {
		second, err := pool.Acquire(ctx)
		require.NoError(t, err)
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the session is leased")
	case <-time.After(time.Millisecond * 100):
	}

	pool.Release(sess)
	select {
	case second := <-acquired:
		pool.Release(second)
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed")
	}
	require.Equal(t, 0, pool.Leased())
}

func TestConcurrentBorrowersNeverExceedCap(t *testing.T) {
	pool, created := newTestPool(t, 2, time.Second*5)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := pool.Acquire(ctx)
			require.NoError(t, err)
			time.Sleep(time.Millisecond * 10)
			pool.Release(sess)
		}()
	}
	wg.Wait()

	require.Equal(t, 0, pool.Leased())
	require.LessOrEqual(t, created.Load(), int64(2))
}
