// Package signal provides single-resolution futures.
//
// A Future starts pending and is resolved at most once. Later Resolve calls
// report false and leave the first value in place, so "already resolved" is an
// observable state rather than a silent overwrite.
package signal

import (
	"context"
	"sync"
)

// Future is a value that becomes available exactly once.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
	set   bool
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already resolved with v.
func Resolved[T any](v T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v)
	return f
}

// Resolve sets the value and wakes all waiters. It returns false if the future
// was already resolved.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set {
		return false
	}
	f.value = v
	f.set = true
	close(f.done)
	return true
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Value returns the resolved value and true, or the zero value and false while
// the future is pending.
func (f *Future[T]) Value() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.set
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		v, _ := f.Value()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Event is a future that carries no value, used for readiness signals.
type Event = Future[struct{}]

// NewEvent returns a pending event.
func NewEvent() *Event {
	return NewFuture[struct{}]()
}

// Fire resolves an event. It returns false if the event already fired.
func Fire(e *Event) bool {
	return e.Resolve(struct{}{})
}
