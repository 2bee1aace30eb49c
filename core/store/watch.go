package store

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog"
)

type watcher struct {
	mu      sync.Mutex
	fn      func() any
	cb      func(newValue, oldValue any)
	last    any
	stopped bool
}

// check re-evaluates the watched expression and fires the callback on change.
// A panicking expression or callback is logged; the commit that triggered it
// has already been published.
func (w *watcher) check(logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("watcher panicked")
		}
	}()

	v, old, changed := w.update()
	if changed {
		w.cb(v, old)
	}
}

func (w *watcher) update() (v, old any, changed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil, nil, false
	}
	v = w.fn()
	if reflect.DeepEqual(v, w.last) {
		return nil, nil, false
	}
	old, w.last = w.last, v
	return v, old, true
}

type watcherSet struct {
	logger   zerolog.Logger
	mu       sync.RWMutex
	watchers []*watcher
}

func (s *watcherSet) add(fn func() any, cb func(newValue, oldValue any)) func() {
	w := &watcher{fn: fn, cb: cb, last: fn()}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	return func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()

		s.mu.Lock()
		defer s.mu.Unlock()
		for i, other := range s.watchers {
			if other == w {
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				break
			}
		}
	}
}

func (s *watcherSet) notify() {
	s.mu.RLock()
	watchers := make([]*watcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.RUnlock()

	for _, w := range watchers {
		w.check(s.logger)
	}
}
