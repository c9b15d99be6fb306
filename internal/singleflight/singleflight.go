// Package singleflight deduplicates concurrent calls that share a key.
package singleflight

import (
	"context"
	"errors"
	"sync"
)

// ErrPanicked is handed to waiters when the leader's function panics
// before publishing a result. The panic itself keeps unwinding the
// leader's goroutine.
var ErrPanicked = errors.New("singleflight: function panicked")

// Group coalesces concurrent calls for the same key: the first caller
// becomes the leader and runs the function, everyone joining before it
// completes waits for the leader's result. The zero value is ready to use.
type Group[K comparable, V any] struct {
	mu      sync.Mutex
	flights map[K]*flight[V]
}

// flight is one in-progress call. val and err are written exactly once,
// before done is closed, so waiters returning from <-done read them
// race-free.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Do returns the result of fn for key, running fn at most once across
// all concurrent callers of the same key. A follower whose ctx ends
// while waiting returns ctx.Err() alone; the leader is not interrupted.
// Thread ctx into fn when the underlying work itself must honor
// cancellation. If fn panics, the panic resumes in the leader and
// waiters receive ErrPanicked.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[K]*flight[V])
	}
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		return f.wait(ctx)
	}

	f := &flight[V]{done: make(chan struct{})}
	g.flights[key] = f
	g.mu.Unlock()

	// Leader: run fn outside the lock, publish, then retire the flight
	// so later calls start fresh. Publication and retirement sit in a
	// defer so a panicking fn still releases its waiters and frees the
	// key while the panic continues upward.
	finished := false
	defer func() {
		if !finished {
			f.err = ErrPanicked
		}
		close(f.done)
		g.mu.Lock()
		delete(g.flights, key)
		g.mu.Unlock()
	}()

	f.val, f.err = fn()
	finished = true
	return f.val, f.err
}

// wait blocks until the flight completes or ctx ends.
func (f *flight[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
