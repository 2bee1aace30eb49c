// Package module turns declarative module types into namespaced store modules.
//
// A module is a Go type that embeds Base and declares its members through
// tables:
//
//	type Counter struct{ module.Base }
//
//	func (Counter) InitialState() module.State { return module.State{"count": 0} }
//
//	func (Counter) Mutators() module.Mutators {
//		return module.Mutators{
//			"increment": func(m *module.MutationContext, _ any) error {
//				n, _ := module.Get[int](m, "count")
//				return m.Set("count", n+1)
//			},
//		}
//	}
//
// Register classifies the declaration, registers the resulting function
// tables with a store and returns an Accessor. Every member body receives a
// context that only offers what is legal where it runs: getters read, mutations
// write state directly, actions commit and dispatch, and external callers go
// through the accessor.
//
// A derived module embeds its parent by value and returns it from Ancestor.
// Tables are merged child first, so a derived entry shadows the parent's entry
// of the same name, and a derived body may still call the parent's table entry
// with its own context.
package module

import (
	"github.com/artpar/modstore/core/store"
)

// State is a module's state bag, keyed by field name.
type State = store.State

// Getter computes a derived value. A returned error fails the read.
type Getter func(g *GetterContext) (any, error)

// Mutator changes state synchronously.
type Mutator func(m *MutationContext, payload any) error

// Action runs asynchronously and changes state only through mutations.
type Action func(a *ActionContext, payload any) error

// Local is a helper callable from getters, mutations and actions. It runs
// with the capabilities of its caller.
type Local func(s Scope, args ...any) (any, error)

// Getters maps getter names to getters.
type Getters map[string]Getter

// Mutators maps mutation names to mutators.
type Mutators map[string]Mutator

// Actions maps action names to actions.
type Actions map[string]Action

// Locals maps helper names to helpers.
type Locals map[string]Local

// References maps property names to other modules' accessors.
type References map[string]*Accessor

// Module is a declarative module. Implementations embed Base, which supplies
// empty defaults for every method.
type Module interface {
	// InitialState returns the module's fields and their initial values.
	// Values of type *Accessor become cross-module references instead of state.
	InitialState() State
	Getters() Getters
	Mutators() Mutators
	Actions() Actions

	isModule()
}

// LocalProvider is implemented by modules that declare local helpers.
type LocalProvider interface {
	Locals() Locals
}

// Inheritor is implemented by derived modules. Ancestor returns the embedded
// parent module, or nil at the root of the chain.
type Inheritor interface {
	Ancestor() Module
}

// Referrer is implemented by modules that declare cross-module references
// outside of InitialState.
type Referrer interface {
	References() References
}

// Creator is implemented by modules that want a hook once registration is
// complete. Created receives the module's accessor.
type Creator interface {
	Created(a *Accessor) error
}

// Onloader is implemented by modules naming actions to dispatch once,
// right after registration.
type Onloader interface {
	Onload() []string
}

// Base is embedded by every module.
type Base struct{}

// InitialState returns an empty state.
func (Base) InitialState() State { return State{} }

// Getters returns no getters.
func (Base) Getters() Getters { return nil }

// Mutators returns no mutators.
func (Base) Mutators() Mutators { return nil }

// Actions returns no actions.
func (Base) Actions() Actions { return nil }

// Locals returns no local helpers.
func (Base) Locals() Locals { return nil }

// Ancestor returns nil; Base is the root of every chain.
func (Base) Ancestor() Module { return nil }

func (Base) isModule() {}
