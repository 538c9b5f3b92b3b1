package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := zerolog.Nop()
	e := NewExecutor(&logger)
	t.Cleanup(func() {
		_ = e.Shutdown(context.Background())
	})
	return e
}

func TestSubmit_DeliversResult(t *testing.T) {
	e := newTestExecutor(t)

	got, err := Await(context.Background(), func(cb Callback[int]) {
		Submit(e, func(ctx context.Context) (int, error) { return 42, nil }, cb)
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSubmit_DeliversError(t *testing.T) {
	e := newTestExecutor(t)
	boom := errors.New("boom")

	_, err := Await(context.Background(), func(cb Callback[string]) {
		Submit(e, func(ctx context.Context) (string, error) { return "", boom }, cb)
	})
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_CallbackRunsExactlyOnce(t *testing.T) {
	e := newTestExecutor(t)
	var calls atomic.Int32

	for i := 0; i < 100; i++ {
		Submit(e, func(ctx context.Context) (struct{}, error) { return struct{}{}, nil }, func(struct{}, error) {
			calls.Add(1)
		})
	}

	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, int32(100), calls.Load())
}

func TestSubmit_PanicBecomesError(t *testing.T) {
	e := newTestExecutor(t)

	_, err := Await(context.Background(), func(cb Callback[int]) {
		Submit(e, func(ctx context.Context) (int, error) { panic("storage exploded") }, cb)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage exploded")
}

func TestSubmit_PanickingCallbackDoesNotCrash(t *testing.T) {
	e := newTestExecutor(t)

	Submit(e, func(ctx context.Context) (int, error) { return 1, nil }, func(int, error) {
		panic("caller bug")
	})
	assert.NoError(t, e.Shutdown(context.Background()))
}

func TestSubmit_NilCallback(t *testing.T) {
	e := newTestExecutor(t)
	var ran atomic.Bool

	Submit[int](e, func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 0, errors.New("ignored")
	}, nil)

	require.NoError(t, e.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestSubmit_AfterShutdown(t *testing.T) {
	e := newTestExecutor(t)
	require.NoError(t, e.Shutdown(context.Background()))

	var ran atomic.Bool
	_, err := Await(context.Background(), func(cb Callback[int]) {
		Submit(e, func(ctx context.Context) (int, error) {
			ran.Store(true)
			return 1, nil
		}, cb)
	})
	assert.ErrorIs(t, err, ErrExecutorClosed)
	assert.False(t, ran.Load())
}

func TestShutdown_WaitsForInFlight(t *testing.T) {
	e := newTestExecutor(t)
	release := make(chan struct{})
	var finished atomic.Bool

	Submit(e, func(ctx context.Context) (int, error) {
		<-release
		return 0, nil
	}, func(int, error) {
		finished.Store(true)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, e.Shutdown(context.Background()))
	assert.True(t, finished.Load())
}

func TestAwait_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Await(ctx, func(cb Callback[int]) {
		// never completes
	})
	assert.ErrorIs(t, err, context.Canceled)
}
