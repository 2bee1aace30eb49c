package module

import (
	"context"

	"github.com/artpar/modstore/core/store"
	"golang.org/x/sync/errgroup"
)

// Accessor is the external handle of a registered module. Names are the
// module's own member names; the accessor qualifies them with the namespace.
type Accessor struct {
	proxy

	module Module
	store  *store.Store
	opts   Options
	loaded *store.Future
}

func (a *Accessor) rootAccess() access {
	acc := access{
		kind: "accessor",
		state: func(field string) (any, error) {
			return a.store.Read(a.namespace, field)
		},
		getter: func(name string) (any, error) {
			return a.store.Getter(store.Qualify(a.namespace, name))
		},
		commit: func(name string, payload any) error {
			return a.store.Commit(store.Qualify(a.namespace, name), payload)
		},
		dispatch: func(ctx context.Context, name string, payload any) *store.Future {
			return a.store.Dispatch(ctx, store.Qualify(a.namespace, name), payload)
		},
	}
	if a.opts.GenerateSetters {
		acc.set = func(field string, value any) error {
			return a.store.Commit(store.Qualify(a.namespace, SetterName(field)), value)
		}
	}
	return acc
}

// Name returns the namespace the module is registered under.
func (a *Accessor) Name() string { return a.namespace }

// Module returns the declaration the accessor was built from.
func (a *Accessor) Module() Module { return a.module }

// Store returns the store the module is registered with.
func (a *Accessor) Store() *store.Store { return a.store }

// Definition returns a copy of the classified declaration.
func (a *Accessor) Definition() *Definition { return a.def.clone() }

// Ref always reports false: references are internal to the module.
func (a *Accessor) Ref(string) (*Accessor, bool) { return nil, false }

// readOnly returns a copy of a that reads state and getters but has no write,
// commit or dispatch capability.
func (a *Accessor) readOnly(context string) *Accessor {
	view := *a
	view.access.kind = context + " reference"
	view.access.set = nil
	view.access.commit = nil
	view.access.dispatch = nil
	return &view
}

// Getter returns the current value of a getter.
func (a *Accessor) Getter(name string) (any, error) { return a.getter(name) }

// Commit commits a mutation, or a generated setter when enabled. It must
// not be called from a mutation body; references obtained there are
// read-only.
func (a *Accessor) Commit(name string, payload any) error { return a.commit(name, payload) }

// Dispatch dispatches an action.
func (a *Accessor) Dispatch(ctx context.Context, name string, payload any) *store.Future {
	return a.dispatch(ctx, name, payload)
}

// Call exists so the accessor satisfies Scope. Local helpers only run inside
// the module; calling one from outside logs a warning and does nothing.
func (a *Accessor) Call(name string, args ...any) (any, error) {
	if _, ok := a.def.Locals[name]; !ok {
		return nil, unknownMember(a.namespace, "local", name)
	}
	a.logger.Warn().Str("local", name).Msg("only mutations or actions should be called outside the module")
	return nil, nil
}

// Watch calls cb whenever the value computed by fn changes. fn receives the
// accessor and typically reads state or getters. The returned function stops
// watching.
func (a *Accessor) Watch(fn func(a *Accessor) any, cb func(newValue, oldValue any)) func() {
	return a.store.Watch(func() any { return fn(a) }, cb)
}

// InstanceOf reports whether the module was declared as target's type or
// derives from it. Pointer and value forms of a type are treated alike.
func (a *Accessor) InstanceOf(target Module) bool {
	return a.def.isA(target)
}

// Describe returns the module's members, including generated setters.
func (a *Accessor) Describe() Description {
	desc := a.def.Describe()
	desc.Name = a.namespace
	desc.Setters = sortedKeys(a.setters)
	return desc
}

// Loaded returns a future that completes once every onload action has
// finished. It fails with the first onload error.
func (a *Accessor) Loaded() *store.Future {
	return a.loaded
}

func (a *Accessor) runOnload(names []string) *store.Future {
	if len(names) == 0 {
		return store.Resolved(nil)
	}
	return store.Start(func() error {
		g, ctx := errgroup.WithContext(context.Background())
		for _, name := range names {
			g.Go(func() error {
				return a.Dispatch(ctx, name, nil).Wait(context.Background())
			})
		}
		return g.Wait()
	})
}
