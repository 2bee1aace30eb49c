package store

import "time"

// Observer receives notifications about store activity. Implementations
// must be safe for concurrent use; the metrics adapter is one.
type Observer interface {
	// ModuleRegistered is called after a namespace is registered or hot replaced.
	ModuleRegistered(namespace string, replaced bool)

	// Committed is called after every commit attempt.
	Committed(namespace, mutation string, d time.Duration, err error)

	// Dispatched is called when an action is dispatched.
	Dispatched(namespace, action string)

	// ActionFinished is called when an action body returns.
	ActionFinished(namespace, action string, d time.Duration, err error)

	// GetterEvaluated is called for every getter read; cached reports a memo hit.
	GetterEvaluated(namespace, getter string, cached bool)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ModuleRegistered(string, bool) {}
func (NopObserver) Committed(string, string, time.Duration, error) {}
func (NopObserver) Dispatched(string, string) {}
func (NopObserver) ActionFinished(string, string, time.Duration, error) {}
func (NopObserver) GetterEvaluated(string, string, bool) {}
