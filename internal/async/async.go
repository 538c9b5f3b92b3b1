// Package async runs blocking operations off the caller's goroutine and hands
// their outcome to a single completion callback.
package async

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// ErrExecutorClosed is passed to callbacks of operations submitted after Shutdown.
var ErrExecutorClosed = errors.New("async: executor is shut down")

// Callback receives the outcome of an asynchronous operation. It is invoked exactly once.
type Callback[T any] func(result T, err error)

// Executor tracks in-flight operations so they can be drained on shutdown.
type Executor struct {
	mu     sync.RWMutex
	closed bool
	wg     conc.WaitGroup
	logger zerolog.Logger
}

// NewExecutor creates a new instance of Executor.
func NewExecutor(logger *zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "async_executor").Logger(),
	}
}

// Submit runs op on its own goroutine and delivers the result to cb.
// A panic in op is reported to cb as an error; a panic in cb is logged.
// cb may be nil for fire-and-forget operations.
func Submit[T any](e *Executor, op func(ctx context.Context) (T, error), cb Callback[T]) {
	if !e.start(func() {
		var (
			result T
			err    error
			pc     panics.Catcher
		)
		pc.Try(func() {
			result, err = op(context.Background())
		})
		if r := pc.Recovered(); r != nil {
			e.logger.Error().Str("panic", r.String()).Msg("async operation panicked")
			err = r.AsError()
		}
		complete(e, cb, result, err)
	}) {
		var zero T
		complete(e, cb, zero, ErrExecutorClosed)
	}
}

// start launches fn unless the executor is shut down.
func (e *Executor) start(fn func()) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return false
	}
	e.wg.Go(fn)
	return true
}

func complete[T any](e *Executor, cb Callback[T], result T, err error) {
	if cb == nil {
		return
	}
	var pc panics.Catcher
	pc.Try(func() {
		cb(result, err)
	})
	if r := pc.Recovered(); r != nil {
		e.logger.Error().Str("panic", r.String()).Msg("async callback panicked")
	}
}

// Shutdown stops accepting work and waits for in-flight operations and their callbacks.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info().Msg("async executor drained")
		return nil
	case <-ctx.Done():
		e.logger.Warn().Err(ctx.Err()).Msg("async executor shutdown timed out")
		return ctx.Err()
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// Await starts a callback-style operation and blocks until it completes or ctx ends.
// A completion arriving after ctx ended is discarded.
func Await[T any](ctx context.Context, start func(cb Callback[T])) (T, error) {
	ch := make(chan outcome[T], 1)
	start(func(v T, err error) {
		ch <- outcome[T]{value: v, err: err}
	})

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
