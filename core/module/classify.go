package module

import (
	"maps"
	"reflect"
	"sort"
)

// maxLineage bounds the Ancestor chain so a cycle fails instead of looping.
const maxLineage = 32

var baseType = reflect.TypeOf(Base{})

// Definition is a classified module declaration.
type Definition struct {
	// Type is the declared type of the most derived module.
	Type reflect.Type

	// Lineage lists the module's type and its ancestors, most derived first.
	// It always ends with Base.
	Lineage []reflect.Type

	State      State
	References References
	Getters    Getters
	Mutators   Mutators
	Actions    Actions
	Locals     Locals
	Onload     []string
}

// Description is a flat, sorted view of a Definition.
type Description struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type       string   `json:"type" yaml:"type"`
	Lineage    []string `json:"lineage" yaml:"lineage"`
	State      []string `json:"state" yaml:"state"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
	Getters    []string `json:"getters,omitempty" yaml:"getters,omitempty"`
	Mutators   []string `json:"mutators,omitempty" yaml:"mutators,omitempty"`
	Actions    []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Locals     []string `json:"locals,omitempty" yaml:"locals,omitempty"`
	Setters    []string `json:"setters,omitempty" yaml:"setters,omitempty"`
	Onload     []string `json:"onload,omitempty" yaml:"onload,omitempty"`
}

// Classify walks a module declaration and its ancestors and sorts every
// member into state, references, getters, mutators, actions and locals.
//
// State comes from the most derived InitialState. Tables are merged child
// first, so an entry declared by a derived module shadows the ancestor's.
// A local helper that shares its name with a mutator or action is dropped.
func Classify(m Module) (*Definition, error) {
	if m == nil {
		return nil, configError("nil module")
	}

	def := &Definition{
		Type:       reflect.TypeOf(m),
		State:      State{},
		References: References{},
		Getters:    Getters{},
		Mutators:   Mutators{},
		Actions:    Actions{},
		Locals:     Locals{},
	}

	for field, v := range m.InitialState() {
		if field == "" {
			return nil, configError("%s: empty state field name", def.Type)
		}
		if ref, ok := v.(*Accessor); ok {
			if ref == nil {
				return nil, configError("%s: reference %q is nil", def.Type, field)
			}
			def.References[field] = ref
			continue
		}
		def.State[field] = v
	}
	if r, ok := m.(Referrer); ok {
		for name, ref := range r.References() {
			if name == "" || ref == nil {
				return nil, configError("%s: invalid reference %q", def.Type, name)
			}
			if _, clash := def.State[name]; clash {
				return nil, configError("%s: reference %q shadows a state field", def.Type, name)
			}
			def.References[name] = ref
		}
	}

	seen := make(map[reflect.Type]bool)
	level := m
	for depth := 0; level != nil; depth++ {
		if depth >= maxLineage {
			return nil, configError("%s: ancestor chain deeper than %d", def.Type, maxLineage)
		}
		t := reflect.TypeOf(level)
		if seen[indirect(t)] {
			return nil, configError("%s: ancestor cycle at %s", def.Type, t)
		}
		seen[indirect(t)] = true
		def.Lineage = append(def.Lineage, t)

		if err := def.merge(level); err != nil {
			return nil, err
		}

		inh, ok := level.(Inheritor)
		if !ok {
			break
		}
		level = inh.Ancestor()
	}
	if !seen[baseType] {
		def.Lineage = append(def.Lineage, baseType)
	}

	for name := range def.Locals {
		_, isMutator := def.Mutators[name]
		_, isAction := def.Actions[name]
		if isMutator || isAction {
			delete(def.Locals, name)
		}
	}
	for name := range def.Getters {
		if _, ok := def.Mutators[name]; ok {
			return nil, configError("%s: %q is declared as getter and mutator", def.Type, name)
		}
		if _, ok := def.Actions[name]; ok {
			return nil, configError("%s: %q is declared as getter and action", def.Type, name)
		}
	}
	for name := range def.Mutators {
		if _, ok := def.Actions[name]; ok {
			return nil, configError("%s: %q is declared as mutator and action", def.Type, name)
		}
	}

	if o, ok := m.(Onloader); ok {
		for _, name := range o.Onload() {
			if _, ok := def.Actions[name]; !ok {
				return nil, configError("%s: onload %q is not an action", def.Type, name)
			}
			def.Onload = append(def.Onload, name)
		}
	}

	return def, nil
}

// merge adds the entries of one lineage level that no derived level declared.
func (d *Definition) merge(level Module) error {
	for name, fn := range level.Getters() {
		if name == "" || fn == nil {
			return configError("%s: invalid getter %q", d.Type, name)
		}
		if _, ok := d.Getters[name]; !ok {
			d.Getters[name] = fn
		}
	}
	for name, fn := range level.Mutators() {
		if name == "" || fn == nil {
			return configError("%s: invalid mutator %q", d.Type, name)
		}
		if _, ok := d.Mutators[name]; !ok {
			d.Mutators[name] = fn
		}
	}
	for name, fn := range level.Actions() {
		if name == "" || fn == nil {
			return configError("%s: invalid action %q", d.Type, name)
		}
		if _, ok := d.Actions[name]; !ok {
			d.Actions[name] = fn
		}
	}
	if lp, ok := level.(LocalProvider); ok {
		for name, fn := range lp.Locals() {
			if name == "" || fn == nil {
				return configError("%s: invalid local %q", d.Type, name)
			}
			if _, ok := d.Locals[name]; !ok {
				d.Locals[name] = fn
			}
		}
	}
	return nil
}

// Describe returns the definition's member names, sorted.
func (d *Definition) Describe() Description {
	desc := Description{
		Type:       d.Type.String(),
		State:      sortedKeys(d.State),
		References: sortedKeys(d.References),
		Getters:    sortedKeys(d.Getters),
		Mutators:   sortedKeys(d.Mutators),
		Actions:    sortedKeys(d.Actions),
		Locals:     sortedKeys(d.Locals),
		Onload:     append([]string(nil), d.Onload...),
	}
	for _, t := range d.Lineage {
		desc.Lineage = append(desc.Lineage, t.String())
	}
	return desc
}

func (d *Definition) clone() *Definition {
	c := *d
	c.Lineage = append([]reflect.Type(nil), d.Lineage...)
	c.State = d.State.Clone()
	c.References = maps.Clone(d.References)
	c.Getters = maps.Clone(d.Getters)
	c.Mutators = maps.Clone(d.Mutators)
	c.Actions = maps.Clone(d.Actions)
	c.Locals = maps.Clone(d.Locals)
	c.Onload = append([]string(nil), d.Onload...)
	return &c
}

// isA reports whether target's type appears in the lineage.
func (d *Definition) isA(target Module) bool {
	if target == nil {
		return false
	}
	want := indirect(reflect.TypeOf(target))
	for _, t := range d.Lineage {
		if indirect(t) == want {
			return true
		}
	}
	return false
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
