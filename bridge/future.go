package bridge

import "context"

// Future is an operation running in its own goroutine.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts op asynchronously. The operation runs to completion even if no
// one waits for it; an abandoned result is decoded and then dropped.
func Go[T any](ctx context.Context, op func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = op(ctx)
	}()
	return f
}

// Done is closed once the operation has finished.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait returns the operation's result, or ctx.Err() if ctx ends first.
// Abandoning a Wait does not cancel the operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
