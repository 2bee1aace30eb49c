package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/modstore/core/store"
	"github.com/rs/zerolog"
)

// setterPrefix starts the name of every generated setter mutation.
const setterPrefix = "set__"

// SetterName returns the name of the generated setter mutation for field.
func SetterName(field string) string {
	return setterPrefix + field
}

// Options configure a registration.
type Options struct {
	// Store is the store the module is registered with. Required.
	Store *store.Store

	// Name is the namespace of the module. Required, and must not contain "/".
	Name string

	// GenerateSetters adds a "set__<field>" mutation per state field and lets
	// actions and the accessor assign state through it.
	GenerateSetters bool

	// Logger receives registration and accessor diagnostics.
	Logger zerolog.Logger
}

// Register classifies m, registers it with opts.Store under opts.Name and
// returns its accessor. Created runs before Register returns; actions named
// by Onload are dispatched right after and can be awaited with Loaded.
func Register(m Module, opts Options) (*Accessor, error) {
	if opts.Store == nil {
		return nil, configError("no store given")
	}
	if opts.Name == "" || strings.Contains(opts.Name, "/") {
		return nil, configError("invalid module name %q", opts.Name)
	}

	def, err := Classify(m)
	if err != nil {
		return nil, err
	}

	setters := map[string]string{}
	if opts.GenerateSetters {
		for field := range def.State {
			name := SetterName(field)
			if _, clash := def.Mutators[name]; clash {
				return nil, configError("%s: mutator %q collides with a generated setter", def.Type, name)
			}
			setters[name] = field
		}
	}

	logger := opts.Logger.With().Str("module", opts.Name).Logger()
	a := &Accessor{
		module: m,
		store:  opts.Store,
		opts:   opts,
		proxy: proxy{
			namespace: opts.Name,
			def:       def,
			setters:   setters,
			logger:    logger,
		},
	}
	a.access = a.rootAccess()

	if err := opts.Store.RegisterModule(opts.Name, a.storeModule()); err != nil {
		return nil, fmt.Errorf("register module %q: %w", opts.Name, err)
	}

	logger.Debug().
		Str("type", def.Type.String()).
		Int("state", len(def.State)).
		Int("getters", len(def.Getters)).
		Int("mutators", len(def.Mutators)).
		Int("actions", len(def.Actions)).
		Int("setters", len(setters)).
		Msg("module registered")

	if c, ok := m.(Creator); ok {
		if err := c.Created(a); err != nil {
			return nil, fmt.Errorf("module %q created hook: %w", opts.Name, err)
		}
	}

	a.loaded = a.runOnload(def.Onload)
	return a, nil
}

// MustRegister is like Register but panics on error.
func MustRegister(m Module, opts Options) *Accessor {
	a, err := Register(m, opts)
	if err != nil {
		panic(err)
	}
	return a
}

// storeModule wraps the definition's tables into store function tables.
func (a *Accessor) storeModule() store.Module {
	def := a.def
	mod := store.Module{
		State:     def.State.Clone(),
		Getters:   make(map[string]store.GetterFunc, len(def.Getters)),
		Mutations: make(map[string]store.MutationFunc, len(def.Mutators)+len(a.setters)),
		Actions:   make(map[string]store.ActionFunc, len(def.Actions)),
	}

	for name, fn := range def.Getters {
		mod.Getters[name] = func(state store.State, getters store.GetterSource) (any, error) {
			g := &GetterContext{proxy: a.scoped(access{
				kind:   "getter",
				state:  mapReader(state),
				getter: getters,
			})}
			return fn(g)
		}
	}

	for name, fn := range def.Mutators {
		mod.Mutations[name] = func(state store.State, payload any) error {
			m := &MutationContext{proxy: a.scoped(access{
				kind:  "mutation",
				state: mapReader(state),
				set: func(field string, value any) error {
					state[field] = value
					return nil
				},
			})}
			return fn(m, payload)
		}
	}
	for name, field := range a.setters {
		mod.Mutations[name] = func(state store.State, payload any) error {
			state[field] = payload
			return nil
		}
	}

	for name, fn := range def.Actions {
		mod.Actions[name] = func(sc store.ActionContext, payload any) error {
			acc := access{
				kind:   "action",
				state:  sc.Read,
				getter: sc.Getter,
				commit: sc.Commit,
				dispatch: func(_ context.Context, name string, payload any) *store.Future {
					return sc.Dispatch(name, payload)
				},
			}
			if a.opts.GenerateSetters {
				acc.set = func(field string, value any) error {
					return sc.Commit(SetterName(field), value)
				}
			}
			ac := &ActionContext{proxy: a.scoped(acc), ctx: sc.Context()}
			return fn(ac, payload)
		}
	}

	return mod
}

// scoped returns a copy of the accessor's proxy bound to acc.
func (a *Accessor) scoped(acc access) proxy {
	p := a.proxy
	p.access = acc
	return p
}
