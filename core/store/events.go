package store

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MutationRecord describes one committed mutation.
type MutationRecord struct {
	// Type is the qualified mutation name, e.g. "cart/pushProductToCart".
	Type string

	// Namespace is the module the mutation belongs to.
	Namespace string

	// Mutation is the local mutation name.
	Mutation string

	// Payload is the value the mutation was committed with.
	Payload any

	// Version is the state version the commit produced.
	Version uint64

	// Time is when the commit started.
	Time time.Time
}

// ActionRecord describes one dispatched action.
type ActionRecord struct {
	// ID is the dispatch ID, shared with the returned Future.
	ID string

	// Type is the qualified action name, e.g. "cart/checkout".
	Type string

	// Namespace is the module the action belongs to.
	Namespace string

	// Action is the local action name.
	Action string

	// Payload is the value the action was dispatched with.
	Payload any

	// Time is when the action was dispatched.
	Time time.Time
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// bus fans records out to subscribers. Supported patterns:
//   - "cart/checkout" - exact match
//   - "cart/*" - everything in one namespace
//   - "*" - everything
type bus[T any] struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string][]subscription[T]
	logger   zerolog.Logger
}

func newBus[T any](logger zerolog.Logger) *bus[T] {
	return &bus[T]{
		handlers: make(map[string][]subscription[T]),
		logger:   logger,
	}
}

func (b *bus[T]) subscribe(pattern string, fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.handlers[pattern] = append(b.handlers[pattern], subscription[T]{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[pattern]
		for i, s := range subs {
			if s.id == id {
				b.handlers[pattern] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.handlers[pattern]) == 0 {
			delete(b.handlers, pattern)
		}
	}
}

// publish calls matching handlers in subscription order, outside the lock,
// so handlers may subscribe or unsubscribe.
func (b *bus[T]) publish(namespace, typ string, rec T) {
	b.mu.RLock()
	var matched []subscription[T]
	matched = append(matched, b.handlers[typ]...)
	matched = append(matched, b.handlers[namespace+"/*"]...)
	matched = append(matched, b.handlers["*"]...)
	b.mu.RUnlock()

	if len(matched) == 0 {
		return
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })

	for _, s := range matched {
		b.call(typ, s.fn, rec)
	}
}

func (b *bus[T]) call(typ string, fn func(T), rec T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("type", typ).
				Msg("subscriber panicked")
		}
	}()
	fn(rec)
}
