package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/liquidbook/internal/util"
)

func TestPollerSettles(t *testing.T) {
	var got int
	var reqID string
	p := New(Config[int]{
		Name: "ticks",
		Fetch: func(ctx context.Context) (int, error) {
			reqID = util.GetRequestID(ctx)
			return 42, nil
		},
		OnSettle: func(_ context.Context, v int) { got = v },
	})

	assert.Equal(t, StateIdle, p.State())
	require.True(t, p.Poll(context.Background()))
	assert.Equal(t, StateSettled, p.State())
	assert.Equal(t, 42, got)
	assert.NotEmpty(t, reqID, "each fetch carries a request id")
	assert.Equal(t, "ticks", p.Name())
}

func TestPollerFails(t *testing.T) {
	boom := errors.New("boom")
	var failed error
	settled := false
	p := New(Config[int]{
		Name:     "best",
		Fetch:    func(context.Context) (int, error) { return 0, boom },
		OnSettle: func(context.Context, int) { settled = true },
		OnFail:   func(_ context.Context, err error) { failed = err },
	})

	require.True(t, p.Poll(context.Background()))
	assert.Equal(t, StateFailed, p.State())
	assert.ErrorIs(t, failed, boom)
	assert.False(t, settled)
	assert.Equal(t, int64(1), p.Failures())

	// a failed source polls again on the next tick
	assert.True(t, p.Poll(context.Background()))
	assert.Equal(t, int64(2), p.Failures())
}

func TestPollerSuppressesOverlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32

	p := New(Config[int]{
		Name: "ticks",
		Fetch: func(context.Context) (int, error) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return 1, nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Poll(context.Background())
	}()

	<-entered
	assert.Equal(t, StateFetching, p.State())
	assert.False(t, p.Poll(context.Background()))
	assert.False(t, p.Poll(context.Background()))
	assert.Equal(t, int64(2), p.Suppressed())

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "overlapping polls are dropped, not queued")
	assert.True(t, p.Poll(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPollerDiscardsAfterClose(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	applied := false

	p := New(Config[int]{
		Name: "ticks",
		Fetch: func(context.Context) (int, error) {
			close(entered)
			<-release
			return 7, nil
		},
		OnSettle: func(context.Context, int) { applied = true },
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Poll(context.Background())
	}()

	<-entered
	p.Close()
	close(release)
	<-done

	assert.False(t, applied)
	assert.False(t, p.Poll(context.Background()))
}

func TestPollerTimeout(t *testing.T) {
	var failed error
	p := New(Config[int]{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Fetch: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
		OnFail: func(_ context.Context, err error) { failed = err },
	})

	p.Poll(context.Background())
	assert.ErrorIs(t, failed, context.DeadlineExceeded)
}

func TestSchedulerRunsAndStops(t *testing.T) {
	s := NewScheduler(nil)
	var runs atomic.Int32
	s.Every(time.Second, "count", func() { runs.Add(1) })
	s.Every(time.Second, "panics", func() { panic("recovered") })
	assert.Equal(t, 2, s.Jobs())

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after stop")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "unknown", State(9).String())
}
