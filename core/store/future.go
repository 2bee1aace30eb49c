package store

import (
	"context"
	"sync"
)

// Future is the pending result of a dispatched action.
type Future struct {
	id   string
	once sync.Once
	done chan struct{}
	err  error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// Resolved returns a future that is already complete with err.
func Resolved(err error) *Future {
	f := newFuture("")
	f.resolve(err)
	return f
}

func (f *Future) resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// ID returns the dispatch ID the future belongs to.
func (f *Future) ID() string { return f.id }

// Done is closed when the action has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Err returns the action's error once it has finished, nil before that.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the action finishes or ctx is done. Giving up on the
// wait does not stop the action.
func (f *Future) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs fn on a new goroutine and returns a future for its result.
func Start(fn func() error) *Future {
	f := newFuture("")
	go func() {
		f.resolve(fn())
	}()
	return f
}
