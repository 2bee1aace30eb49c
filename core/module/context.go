package module

import (
	"context"
	"fmt"

	"github.com/artpar/modstore/core/store"
	"github.com/rs/zerolog"
)

// Scope is what every member body can do: read state, assign state where
// allowed, follow references and call local helpers.
type Scope interface {
	// Namespace returns the name the module is registered under.
	Namespace() string
	// State returns the value of a state field.
	State(field string) (any, error)
	// Set assigns a state field. Outside a mutation it fails with a
	// ScopeError, unless the module generates setters and the caller is an
	// action, in which case the assignment is committed as a mutation.
	Set(field string, value any) error
	// Ref returns the accessor of a referenced module. Getters and mutations
	// get a read-only view; the external accessor has no references.
	Ref(name string) (*Accessor, bool)
	// Call runs a local helper with the caller's capabilities.
	Call(name string, args ...any) (any, error)
}

// access is the set of primitives a context is built from. Nil entries are
// capabilities the context does not have.
type access struct {
	kind     string
	state    func(field string) (any, error)
	set      func(field string, value any) error
	getter   func(name string) (any, error)
	commit   func(name string, payload any) error
	dispatch func(ctx context.Context, name string, payload any) *store.Future
}

// proxy resolves member names against a definition and forwards to access.
type proxy struct {
	namespace string
	def       *Definition
	setters   map[string]string
	access    access
	logger    zerolog.Logger
}

func (p *proxy) Namespace() string { return p.namespace }

func (p *proxy) State(field string) (any, error) {
	if _, ok := p.def.State[field]; !ok {
		return nil, unknownMember(p.namespace, "state field", field)
	}
	return p.access.state(field)
}

func (p *proxy) Set(field string, value any) error {
	if _, ok := p.def.State[field]; !ok {
		return unknownMember(p.namespace, "state field", field)
	}
	if p.access.set == nil {
		return &ScopeError{Module: p.namespace, Field: field, Context: p.access.kind}
	}
	return p.access.set(field, value)
}

func (p *proxy) ref(name string) (*Accessor, bool) {
	ref, ok := p.def.References[name]
	return ref, ok
}

// readOnlyRef returns a view of a referenced module that reads but neither
// commits nor dispatches. A mutation committing elsewhere would re-enter the
// store while it holds the write lock.
func (p *proxy) readOnlyRef(name string) (*Accessor, bool) {
	ref, ok := p.ref(name)
	if !ok {
		return nil, false
	}
	return ref.readOnly(p.access.kind), true
}

func (p *proxy) getter(name string) (any, error) {
	if _, ok := p.def.Getters[name]; !ok {
		return nil, unknownMember(p.namespace, "getter", name)
	}
	return p.access.getter(name)
}

func (p *proxy) commit(name string, payload any) error {
	if !p.hasMutation(name) {
		return unknownMember(p.namespace, "mutation", name)
	}
	if p.access.commit == nil {
		return readOnly(p.namespace, "commit", name, p.access.kind)
	}
	return p.access.commit(name, payload)
}

func (p *proxy) dispatch(ctx context.Context, name string, payload any) *store.Future {
	if _, ok := p.def.Actions[name]; !ok {
		return store.Resolved(unknownMember(p.namespace, "action", name))
	}
	if p.access.dispatch == nil {
		return store.Resolved(readOnly(p.namespace, "dispatch", name, p.access.kind))
	}
	return p.access.dispatch(ctx, name, payload)
}

func (p *proxy) hasMutation(name string) bool {
	if _, ok := p.def.Mutators[name]; ok {
		return true
	}
	_, ok := p.setters[name]
	return ok
}

func (p *proxy) call(self Scope, name string, args []any) (any, error) {
	fn, ok := p.def.Locals[name]
	if !ok {
		return nil, unknownMember(p.namespace, "local", name)
	}
	return fn(self, args...)
}

// GetterContext is handed to getters. It reads state and other getters.
// State assignments fail.
type GetterContext struct {
	proxy
}

// Getter returns the value of another getter of the module.
func (g *GetterContext) Getter(name string) (any, error) { return g.getter(name) }

// Ref returns a read-only view of a referenced module.
func (g *GetterContext) Ref(name string) (*Accessor, bool) { return g.readOnlyRef(name) }

// Call runs a local helper.
func (g *GetterContext) Call(name string, args ...any) (any, error) {
	return g.call(g, name, args)
}

// MutationContext is handed to mutators. State assignments write directly
// to the state being mutated and become visible when the mutation returns
// without error.
type MutationContext struct {
	proxy
}

// Ref returns a read-only view of a referenced module. Its state and getters
// reflect the last commit, not the mutation in progress.
func (m *MutationContext) Ref(name string) (*Accessor, bool) { return m.readOnlyRef(name) }

// Call runs a local helper.
func (m *MutationContext) Call(name string, args ...any) (any, error) {
	return m.call(m, name, args)
}

// ActionContext is handed to actions. Reads see the latest committed state.
type ActionContext struct {
	proxy
	ctx context.Context
}

// Context returns the context the action was dispatched with.
func (a *ActionContext) Context() context.Context { return a.ctx }

// Getter returns the current value of a getter of the module.
func (a *ActionContext) Getter(name string) (any, error) { return a.getter(name) }

// Ref returns the accessor of a referenced module.
func (a *ActionContext) Ref(name string) (*Accessor, bool) { return a.ref(name) }

// Commit commits a mutation of the module.
func (a *ActionContext) Commit(name string, payload any) error { return a.commit(name, payload) }

// Dispatch dispatches another action of the module.
func (a *ActionContext) Dispatch(name string, payload any) *store.Future {
	return a.dispatch(a.ctx, name, payload)
}

// Call runs a local helper.
func (a *ActionContext) Call(name string, args ...any) (any, error) {
	return a.call(a, name, args)
}

var (
	_ Scope = (*GetterContext)(nil)
	_ Scope = (*MutationContext)(nil)
	_ Scope = (*ActionContext)(nil)
	_ Scope = (*Accessor)(nil)
)

// StateReader is anything that reads state fields by name.
type StateReader interface {
	State(field string) (any, error)
}

// GetterReader is anything that reads getters by name.
type GetterReader interface {
	Getter(name string) (any, error)
}

// Get reads a state field and asserts its type. A nil value yields the zero
// value of T.
func Get[T any](r StateReader, field string) (T, error) {
	v, err := r.State(field)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v, fmt.Sprintf("state field %q", field))
}

// GetterAs reads a getter and asserts its type. A nil value yields the zero
// value of T.
func GetterAs[T any](r GetterReader, name string) (T, error) {
	v, err := r.Getter(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return as[T](v, fmt.Sprintf("getter %q", name))
}

// Payload asserts the type of a mutation or action payload. A nil payload
// yields the zero value of T.
func Payload[T any](payload any) (T, error) {
	return as[T](payload, "payload")
}

func as[T any](v any, what string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %T", ErrTypeMismatch, what, v, zero)
	}
	return t, nil
}

func mapReader(state store.State) func(string) (any, error) {
	return func(field string) (any, error) {
		return state[field], nil
	}
}
