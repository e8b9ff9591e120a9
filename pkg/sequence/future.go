package sequence

import (
	"context"
	"sync"
)

// Callback receives the outcome of an operation. Exactly one of the value
// or the error is meaningful: when err is non-nil the value is the zero value.
type Callback[T any] func(T, error)

// Future is a deferred result. It is resolved once; later resolutions are
// ignored, so registered callbacks never fire twice.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
	cbs  []Callback[T]
}

func newFuture[T any](cbs []Callback[T]) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cbs: cbs}
}

// resolve settles the future and notifies callbacks. Only the first call
// has any effect.
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		if err != nil {
			var zero T
			v = zero
		}
		f.val, f.err = v, err
		close(f.done)
		for _, cb := range f.cbs {
			if cb != nil {
				cb(v, err)
			}
		}
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future resolves or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Async runs fn on its own goroutine and returns its deferred result. Any
// callbacks are invoked from that goroutine once fn returns.
//
//	f := sequence.Async(ctx, func(ctx context.Context) (*sequence.Transaction, error) {
//	    return c.Transactions.Transact(ctx, build)
//	})
//	tx, err := f.Await(ctx)
func Async[T any](ctx context.Context, fn func(context.Context) (T, error), cbs ...Callback[T]) *Future[T] {
	f := newFuture(cbs)
	go func() {
		f.resolve(fn(ctx))
	}()
	return f
}

// settle runs fn synchronously through a Future so the direct return value
// and any callbacks observe the same outcome.
func settle[T any](ctx context.Context, cbs []Callback[T], fn func(context.Context) (T, error)) (T, error) {
	f := newFuture(cbs)
	f.resolve(fn(ctx))
	return f.val, f.err
}
