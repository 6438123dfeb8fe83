package couchbase

import (
	"context"
	"errors"
	"sync"
)

// Future carries the single result of an asynchronous operation.
//
// Exactly one of Complete, Fail or Dispose takes effect; later calls are
// ignored and return false. Every observer sees the same result, whether it
// attached before or after completion. There is no built-in timeout: bound
// Wait with the context instead.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	value     T
	err       error
	observers []func(T, error)
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete resolves the future with v.
func (f *Future[T]) Complete(v T) bool {
	return f.settle(v, nil)
}

// errNilFailure replaces a nil error passed to Fail.
var errNilFailure = errors.New("couchbase: future failed with nil error")

// Fail resolves the future with err. A nil err is replaced by a non-nil
// error so a failure is never observed as a success.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = errNilFailure
	}
	var zero T
	return f.settle(zero, err)
}

// Dispose abandons a future that will never be completed. Waiters receive
// ErrFutureDisposed.
func (f *Future[T]) Dispose() bool {
	return f.Fail(ErrFutureDisposed)
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.value = v
	f.err = err
	observers := f.observers
	f.observers = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(v, err)
	}
	return true
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future is resolved or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrFuturePending.
func (f *Future[T]) Result() (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		var zero T
		return zero, ErrFuturePending
	}
}

// OnComplete registers fn to run once with the result. If the future is
// already resolved fn runs immediately on the calling goroutine, otherwise on
// the goroutine that resolves it.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.completed {
		f.observers = append(f.observers, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()

	fn(v, err)
}
