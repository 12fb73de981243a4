package seqz

import (
	"context"
	"sync"
)

// Future is a value of type T that settles once, either resolved with a
// value or rejected with an error. It is safe for concurrent use; any
// number of goroutines may wait on it.
//
// Futures returned by Trigger, TriggerError and TriggerWrap settle when the
// whole sequence has finished. Handlers may return their own Future through
// Later (or From) to suspend the sequence until it settles.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// NewFuture creates an unsettled Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Rejected returns a Future already rejected with err.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and returns a Future that settles with its
// result. A panic inside fn rejects the Future with a *PanicError.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(newPanicError(r))
			}
		}()
		f.settle(fn(ctx))
	}()
	return f
}

// Resolve settles the Future with v. Only the first settlement has effect;
// it reports whether this call settled the Future.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the Future with err. A nil err resolves with the zero value.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the Future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future settles or ctx is done. Abandoning the wait
// does not cancel the work behind the Future.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the Future settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Settled implements Deferred. It returns the zero value and nil before the
// Future has settled.
func (f *Future[T]) Settled() (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
		return nil, nil
	}
}

var _ Deferred = (*Future[any])(nil)
