package module

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/modstore/core/store"
	"github.com/rs/zerolog"
)

// fooModule has one field, a getter over it and a mutation replacing it.
type fooModule struct{ Base }

func (fooModule) InitialState() State { return State{"foo": "init"} }

func (fooModule) Getters() Getters {
	return Getters{
		"text": func(g *GetterContext) (any, error) {
			foo, err := Get[string](g, "foo")
			return "value: " + foo, err
		},
		"badSet": func(g *GetterContext) (any, error) {
			return nil, g.Set("foo", "changed")
		},
		"viaLocal": func(g *GetterContext) (any, error) {
			return g.Call("assign", "changed")
		},
	}
}

func (fooModule) Mutators() Mutators {
	return Mutators{
		"updateFoo": func(m *MutationContext, payload any) error {
			return m.Set("foo", payload)
		},
		"assignViaLocal": func(m *MutationContext, payload any) error {
			_, err := m.Call("assign", payload)
			return err
		},
	}
}

func (fooModule) Actions() Actions {
	return Actions{
		"setFooLater": func(a *ActionContext, payload any) error {
			if err := a.Commit("updateFoo", payload); err != nil {
				return err
			}
			foo, err := Get[string](a, "foo")
			if err != nil {
				return err
			}
			if foo != payload {
				return errors.New("action did not observe its own commit")
			}
			return nil
		},
		"assignDirectly": func(a *ActionContext, payload any) error {
			return a.Set("foo", payload)
		},
	}
}

func (fooModule) Locals() Locals {
	return Locals{
		"assign": func(s Scope, args ...any) (any, error) {
			return nil, s.Set("foo", args[0])
		},
		"updateFoo": func(Scope, ...any) (any, error) {
			return nil, errors.New("shadowed local must not run")
		},
	}
}

func newStore() *store.Store {
	return store.New(store.WithLogger(zerolog.Nop()))
}

func register(t *testing.T, s *store.Store, m Module, name string, setters bool) *Accessor {
	t.Helper()
	a, err := Register(m, Options{Store: s, Name: name, GenerateSetters: setters, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", name, err)
	}
	return a
}

func TestRegister_InitialStateRoundTrip(t *testing.T) {
	s := newStore()
	greet := func() string { return "hi" }
	m := stateOnly{state: State{"n": 1, "items": []string{"a"}, "greet": greet}}
	a := register(t, s, m, "plain", false)

	n, err := Get[int](a, "n")
	if err != nil || n != 1 {
		t.Errorf("Get(n) = %d, %v; want 1", n, err)
	}
	items, err := Get[[]string](a, "items")
	if err != nil || len(items) != 1 || items[0] != "a" {
		t.Errorf("Get(items) = %v, %v", items, err)
	}
	fn, err := Get[func() string](a, "greet")
	if err != nil {
		t.Fatalf("Get(greet) error = %v", err)
	}
	if fn() != "hi" {
		t.Errorf("greet() = %q, want hi", fn())
	}

	if _, err := Get[string](a, "n"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Get[string](n) error = %v, want ErrTypeMismatch", err)
	}
	if _, err := a.State("missing"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("State(missing) error = %v, want ErrUnknownMember", err)
	}
}

type stateOnly struct {
	Base
	state State
}

func (m stateOnly) InitialState() State { return m.state }

func TestCommit_UsesNamespacedType(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "myModule", false)

	var got []store.MutationRecord
	unsubscribe := s.Subscribe("*", func(rec store.MutationRecord) {
		got = append(got, rec)
	})
	defer unsubscribe()

	if err := a.Commit("updateFoo", "bar"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].Type != "myModule/updateFoo" {
		t.Errorf("Type = %q, want myModule/updateFoo", got[0].Type)
	}
	if got[0].Payload != "bar" {
		t.Errorf("Payload = %v, want bar", got[0].Payload)
	}

	text, err := GetterAs[string](a, "text")
	if err != nil || text != "value: bar" {
		t.Errorf("text = %q, %v; want %q", text, err, "value: bar")
	}
}

func TestWriteDiscipline(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	tests := []struct {
		name string
		run  func() error
	}{
		{"getter", func() error {
			_, err := a.Getter("badSet")
			return err
		}},
		{"local called from getter", func() error {
			_, err := a.Getter("viaLocal")
			return err
		}},
		{"accessor", func() error {
			return a.Set("foo", "changed")
		}},
		{"action without setters", func() error {
			return a.Dispatch(context.Background(), "assignDirectly", "changed").Wait(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, ErrMutationScope) {
				t.Fatalf("error = %v, want ErrMutationScope", err)
			}
			var scopeErr *ScopeError
			if !errors.As(err, &scopeErr) || scopeErr.Module != "foo" || scopeErr.Field != "foo" {
				t.Errorf("ScopeError = %+v", scopeErr)
			}
			if foo, _ := Get[string](a, "foo"); foo != "init" {
				t.Errorf("foo = %q, want init", foo)
			}
		})
	}
}

func TestMutation_LocalInheritsWriteAccess(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	if err := a.Commit("assignViaLocal", "local"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if foo, _ := Get[string](a, "foo"); foo != "local" {
		t.Errorf("foo = %q, want local", foo)
	}
}

func TestLocals_ShadowedByMutationsAndActions(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	desc := a.Describe()
	if strings.Join(desc.Locals, ",") != "assign" {
		t.Errorf("Locals = %v, want [assign]", desc.Locals)
	}
	if err := a.Commit("updateFoo", "x"); err != nil {
		t.Errorf("Commit(updateFoo) error = %v", err)
	}
}

func TestAction_ReadsLiveState(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	if err := a.Dispatch(context.Background(), "setFooLater", "later").Wait(context.Background()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if foo, _ := Get[string](a, "foo"); foo != "later" {
		t.Errorf("foo = %q, want later", foo)
	}
}

func TestGeneratedSetters(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", true)

	var types []string
	s.Subscribe("foo/*", func(rec store.MutationRecord) {
		types = append(types, rec.Type)
	})

	if err := a.Set("foo", "direct"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := a.Dispatch(context.Background(), "assignDirectly", "from action").Wait(context.Background()); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := a.Commit(SetterName("foo"), "committed"); err != nil {
		t.Fatalf("Commit(setter) error = %v", err)
	}

	want := []string{"foo/set__foo", "foo/set__foo", "foo/set__foo"}
	if strings.Join(types, " ") != strings.Join(want, " ") {
		t.Errorf("mutation types = %v, want %v", types, want)
	}
	if foo, _ := Get[string](a, "foo"); foo != "committed" {
		t.Errorf("foo = %q, want committed", foo)
	}

	if _, err := a.Getter("badSet"); !errors.Is(err, ErrMutationScope) {
		t.Errorf("getter Set error = %v, want ErrMutationScope even with setters", err)
	}
}

func TestGeneratedSetters_CollideWithMutator(t *testing.T) {
	s := newStore()
	_, err := Register(clashingSetter{}, Options{Store: s, Name: "clash", GenerateSetters: true})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Register() error = %v, want ErrConfiguration", err)
	}
	if s.Has("clash") {
		t.Error("module registered despite configuration error")
	}
}

type clashingSetter struct{ Base }

func (clashingSetter) InitialState() State { return State{"x": 0} }

func (clashingSetter) Mutators() Mutators {
	return Mutators{"set__x": func(*MutationContext, any) error { return nil }}
}

type parentModule struct{ Base }

func (parentModule) InitialState() State { return State{"foo": "parent"} }

func (parentModule) Getters() Getters {
	return Getters{
		"text": func(g *GetterContext) (any, error) {
			foo, err := Get[string](g, "foo")
			return "parent " + foo, err
		},
		"decorated": func(g *GetterContext) (any, error) {
			foo, err := Get[string](g, "foo")
			if err != nil {
				return nil, err
			}
			return g.Call("decorate", foo)
		},
		"loud": func(g *GetterContext) (any, error) {
			foo, err := Get[string](g, "foo")
			if err != nil {
				return nil, err
			}
			return g.Call("shout", foo)
		},
	}
}

func (parentModule) Mutators() Mutators {
	return Mutators{
		"updateFoo": func(m *MutationContext, payload any) error {
			return m.Set("foo", payload)
		},
		"reset": func(m *MutationContext, _ any) error {
			return m.Set("foo", "")
		},
	}
}

func (parentModule) Actions() Actions {
	return Actions{
		"load": func(a *ActionContext, payload any) error {
			return a.Commit("updateFoo", payload)
		},
	}
}

func (parentModule) Locals() Locals {
	return Locals{
		"decorate": func(_ Scope, args ...any) (any, error) {
			return fmt.Sprintf("[%v]", args[0]), nil
		},
		"shout": func(_ Scope, args ...any) (any, error) {
			return strings.ToUpper(fmt.Sprint(args[0])), nil
		},
	}
}

type childModule struct{ parentModule }

func (childModule) InitialState() State { return State{"foo": "child", "extra": 1} }

func (c childModule) Ancestor() Module { return c.parentModule }

func (childModule) Getters() Getters {
	return Getters{
		"text": func(g *GetterContext) (any, error) {
			foo, err := Get[string](g, "foo")
			return "child " + foo, err
		},
	}
}

func (c childModule) Mutators() Mutators {
	super := c.parentModule.Mutators()
	return Mutators{
		"updateFoo": func(m *MutationContext, payload any) error {
			if err := super["updateFoo"](m, payload); err != nil {
				return err
			}
			foo, _ := Get[string](m, "foo")
			return m.Set("foo", foo+"!")
		},
		"setExtra": func(m *MutationContext, payload any) error {
			return m.Set("extra", payload)
		},
	}
}

func (c childModule) Actions() Actions {
	super := c.parentModule.Actions()
	return Actions{
		"load": func(a *ActionContext, payload any) error {
			if err := super["load"](a, payload); err != nil {
				return err
			}
			foo, err := Get[string](a, "foo")
			if err != nil {
				return err
			}
			return a.Commit("setExtra", foo)
		},
	}
}

func (c childModule) Locals() Locals {
	super := c.parentModule.Locals()
	return Locals{
		"decorate": func(s Scope, args ...any) (any, error) {
			v, err := super["decorate"](s, args...)
			return fmt.Sprintf("child %v", v), err
		},
	}
}

type unrelatedModule struct{ Base }

func TestInheritance(t *testing.T) {
	s := newStore()
	a := register(t, s, &childModule{}, "child", false)

	if foo, _ := Get[string](a, "foo"); foo != "child" {
		t.Errorf("foo = %q, want child", foo)
	}
	if text, _ := GetterAs[string](a, "text"); text != "child child" {
		t.Errorf("text = %q, want derived getter", text)
	}

	if err := a.Commit("updateFoo", "bar"); err != nil {
		t.Fatalf("Commit(updateFoo) error = %v", err)
	}
	if foo, _ := Get[string](a, "foo"); foo != "bar!" {
		t.Errorf("foo = %q, want bar!", foo)
	}

	if err := a.Commit("reset", nil); err != nil {
		t.Fatalf("inherited Commit(reset) error = %v", err)
	}
	if foo, _ := Get[string](a, "foo"); foo != "" {
		t.Errorf("foo = %q, want empty", foo)
	}

	checks := []struct {
		target Module
		want   bool
	}{
		{childModule{}, true},
		{&childModule{}, true},
		{parentModule{}, true},
		{Base{}, true},
		{unrelatedModule{}, false},
		{nil, false},
	}
	for _, c := range checks {
		if got := a.InstanceOf(c.target); got != c.want {
			t.Errorf("InstanceOf(%T) = %v, want %v", c.target, got, c.want)
		}
	}
}

func TestInheritance_ActionCallsParent(t *testing.T) {
	s := newStore()
	a := register(t, s, &childModule{}, "child", false)

	ctx := context.Background()
	if err := a.Dispatch(ctx, "load", "x").Wait(ctx); err != nil {
		t.Fatalf("Dispatch(load) error = %v", err)
	}

	// The parent's action committed through the derived updateFoo, and the
	// child read the result from the same context.
	if foo, _ := Get[string](a, "foo"); foo != "x!" {
		t.Errorf("foo = %q, want x!", foo)
	}
	if extra, _ := Get[string](a, "extra"); extra != "x!" {
		t.Errorf("extra = %q, want x!", extra)
	}
}

func TestInheritance_LocalShadowsParent(t *testing.T) {
	s := newStore()
	a := register(t, s, &childModule{}, "child", false)

	if v, err := GetterAs[string](a, "decorated"); err != nil || v != "child [child]" {
		t.Errorf("decorated = %q, %v; want child [child]", v, err)
	}
	if v, err := GetterAs[string](a, "loud"); err != nil || v != "CHILD" {
		t.Errorf("loud = %q, %v; want inherited local", v, err)
	}
	if strings.Join(a.Describe().Locals, ",") != "decorate,shout" {
		t.Errorf("Locals = %v", a.Describe().Locals)
	}

	parent := register(t, s, parentModule{}, "parent", false)
	if v, _ := GetterAs[string](parent, "decorated"); v != "[parent]" {
		t.Errorf("parent decorated = %q, want [parent]", v)
	}
}

type referrer struct {
	Base
	other *Accessor
}

func (r referrer) InitialState() State {
	return State{"label": "b", "other": r.other}
}

func (referrer) Getters() Getters {
	return Getters{
		"otherText": func(g *GetterContext) (any, error) {
			ref, ok := g.Ref("other")
			if !ok {
				return nil, errors.New("reference missing")
			}
			return ref.Getter("text")
		},
		"dispatchOther": func(g *GetterContext) (any, error) {
			ref, _ := g.Ref("other")
			return nil, ref.Dispatch(context.Background(), "setFooLater", "g").Wait(context.Background())
		},
	}
}

func (referrer) Mutators() Mutators {
	return Mutators{
		"commitOther": func(m *MutationContext, payload any) error {
			ref, ok := m.Ref("other")
			if !ok {
				return errors.New("reference missing")
			}
			return ref.Commit("updateFoo", payload)
		},
		"setOther": func(m *MutationContext, payload any) error {
			ref, _ := m.Ref("other")
			return ref.Set("foo", payload)
		},
		"copyOther": func(m *MutationContext, _ any) error {
			ref, _ := m.Ref("other")
			foo, err := Get[string](ref, "foo")
			if err != nil {
				return err
			}
			return m.Set("label", foo)
		},
	}
}

func (referrer) Actions() Actions {
	return Actions{
		"updateOther": func(a *ActionContext, payload any) error {
			ref, ok := a.Ref("other")
			if !ok {
				return errors.New("reference missing")
			}
			return ref.Commit("updateFoo", payload)
		},
	}
}

func TestReferences_ExcludedFromState(t *testing.T) {
	s := newStore()
	foo := register(t, s, fooModule{}, "foo", false)
	b := register(t, s, referrer{other: foo}, "b", false)

	state, err := s.State("b")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if _, ok := state["other"]; ok {
		t.Error("reference stored in state")
	}
	if _, err := b.State("other"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("State(other) error = %v, want ErrUnknownMember", err)
	}
	if ref, ok := b.Ref("other"); ok || ref != nil {
		t.Errorf("accessor Ref(other) = %v, %v; want no external references", ref, ok)
	}
	if strings.Join(b.Describe().References, ",") != "other" {
		t.Errorf("References = %v, want [other]", b.Describe().References)
	}

	if err := foo.Commit("updateFoo", "shared"); err != nil {
		t.Fatal(err)
	}
	if v, _ := GetterAs[string](b, "otherText"); v != "value: shared" {
		t.Errorf("otherText = %q, want value: shared", v)
	}
}

func TestReferences_ReadOnlyOutsideActions(t *testing.T) {
	s := newStore()
	other := register(t, s, fooModule{}, "foo", true)
	b := register(t, s, referrer{other: other}, "b", false)

	done := make(chan error, 1)
	go func() { done <- b.Commit("commitOther", "nested") }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrReadOnlyReference) {
			t.Errorf("Commit(commitOther) error = %v, want ErrReadOnlyReference", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commit through a reference inside a mutation did not return")
	}

	if err := b.Commit("setOther", "x"); !errors.Is(err, ErrMutationScope) {
		t.Errorf("Commit(setOther) error = %v, want ErrMutationScope", err)
	}
	if _, err := b.Getter("dispatchOther"); !errors.Is(err, ErrReadOnlyReference) {
		t.Errorf("Getter(dispatchOther) error = %v, want ErrReadOnlyReference", err)
	}
	if foo, _ := Get[string](other, "foo"); foo != "init" {
		t.Errorf("foo = %q, want init", foo)
	}

	// Reads through the view work and the store still accepts commits.
	if err := b.Commit("copyOther", nil); err != nil {
		t.Fatalf("Commit(copyOther) error = %v", err)
	}
	if label, _ := Get[string](b, "label"); label != "init" {
		t.Errorf("label = %q, want init", label)
	}

	ctx := context.Background()
	if err := b.Dispatch(ctx, "updateOther", "from action").Wait(ctx); err != nil {
		t.Fatalf("Dispatch(updateOther) error = %v", err)
	}
	if foo, _ := Get[string](other, "foo"); foo != "from action" {
		t.Errorf("foo = %q, want from action", foo)
	}
}

func TestDefinition_ReturnsCopy(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	def := a.Definition()
	delete(def.Mutators, "updateFoo")
	def.State["foo"] = "edited"
	def.Lineage[0] = nil

	if err := a.Commit("updateFoo", "still there"); err != nil {
		t.Errorf("Commit(updateFoo) after editing the copy: %v", err)
	}
	again := a.Definition()
	if again.State["foo"] != "init" || again.Lineage[0] == nil {
		t.Errorf("definition changed through a copy: %+v", again)
	}
}

func TestWatch(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)
	if err := a.Commit("updateFoo", "foo"); err != nil {
		t.Fatal(err)
	}

	var calls [][2]any
	stop := a.Watch(func(a *Accessor) any {
		v, _ := a.State("foo")
		return v
	}, func(newValue, oldValue any) {
		calls = append(calls, [2]any{newValue, oldValue})
	})

	if err := a.Commit("updateFoo", "bar"); err != nil {
		t.Fatal(err)
	}
	if err := a.Commit("updateFoo", "bar"); err != nil {
		t.Fatal(err)
	}
	stop()
	if err := a.Commit("updateFoo", "baz"); err != nil {
		t.Fatal(err)
	}

	if len(calls) != 1 {
		t.Fatalf("callbacks = %v, want exactly one", calls)
	}
	if calls[0][0] != "bar" || calls[0][1] != "foo" {
		t.Errorf("callback(new, old) = (%v, %v), want (bar, foo)", calls[0][0], calls[0][1])
	}
}

type lifecycle struct{ Base }

func (lifecycle) InitialState() State { return State{"isCreated": false} }

func (lifecycle) Created(a *Accessor) error {
	return a.Set("isCreated", true)
}

func TestCreated(t *testing.T) {
	s := newStore()
	a := register(t, s, lifecycle{}, "life", true)

	if created, _ := Get[bool](a, "isCreated"); !created {
		t.Error("Created hook did not run")
	}
}

func TestCreated_ErrorFailsRegistration(t *testing.T) {
	s := newStore()
	_, err := Register(lifecycle{}, Options{Store: s, Name: "life"})
	if !errors.Is(err, ErrMutationScope) {
		t.Fatalf("Register() error = %v, want ErrMutationScope from hook", err)
	}
}

type loader struct {
	Base
	fail bool
}

func (loader) InitialState() State { return State{"loaded": false} }

func (l loader) Actions() Actions {
	return Actions{
		"load": func(a *ActionContext, _ any) error {
			if l.fail {
				return errors.New("backend down")
			}
			return a.Commit("markLoaded", nil)
		},
	}
}

func (loader) Mutators() Mutators {
	return Mutators{
		"markLoaded": func(m *MutationContext, _ any) error {
			return m.Set("loaded", true)
		},
	}
}

func (loader) Onload() []string { return []string{"load"} }

func TestOnload(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := newStore()
	a := register(t, s, loader{}, "loader", false)
	if err := a.Loaded().Wait(ctx); err != nil {
		t.Fatalf("Loaded() error = %v", err)
	}
	if loaded, _ := Get[bool](a, "loaded"); !loaded {
		t.Error("onload action did not run")
	}

	failing := register(t, s, loader{fail: true}, "failing", false)
	if err := failing.Loaded().Wait(ctx); err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("Loaded() error = %v, want backend down", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	s := newStore()
	register(t, s, fooModule{}, "myModule", false)

	_, err := Register(fooModule{}, Options{Store: s, Name: "myModule"})
	if !errors.Is(err, store.ErrDuplicateModule) {
		t.Fatalf("error = %v, want ErrDuplicateModule", err)
	}
	if !strings.Contains(err.Error(), "myModule") {
		t.Errorf("error %q does not name the module", err)
	}
}

func TestRegister_HotReloadKeepsState(t *testing.T) {
	s := store.New(store.WithLogger(zerolog.Nop()), store.WithHotReload(true))
	a := register(t, s, fooModule{}, "foo", false)
	if err := a.Commit("updateFoo", "kept"); err != nil {
		t.Fatal(err)
	}

	b := register(t, s, fooModule{}, "foo", false)
	if foo, _ := Get[string](b, "foo"); foo != "kept" {
		t.Errorf("foo = %q, want kept", foo)
	}
}

type loop struct{ Base }

func (loop) Ancestor() Module { return loop{} }

type badOnload struct{ Base }

func (badOnload) Onload() []string { return []string{"missing"} }

type nilMutator struct{ Base }

func (nilMutator) Mutators() Mutators { return Mutators{"noop": nil} }

type getterMutator struct{ Base }

func (getterMutator) Getters() Getters {
	return Getters{"count": func(*GetterContext) (any, error) { return 0, nil }}
}

func (getterMutator) Mutators() Mutators {
	return Mutators{"count": func(*MutationContext, any) error { return nil }}
}

func TestRegister_ConfigurationErrors(t *testing.T) {
	s := newStore()

	tests := []struct {
		name string
		m    Module
		opts Options
	}{
		{"no store", fooModule{}, Options{Name: "x"}},
		{"empty name", fooModule{}, Options{Store: s}},
		{"slash in name", fooModule{}, Options{Store: s, Name: "a/b"}},
		{"nil module", nil, Options{Store: s, Name: "x"}},
		{"ancestor cycle", loop{}, Options{Store: s, Name: "loop"}},
		{"onload without action", badOnload{}, Options{Store: s, Name: "onload"}},
		{"nil mutator", nilMutator{}, Options{Store: s, Name: "nil"}},
		{"getter named like mutator", getterMutator{}, Options{Store: s, Name: "gm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Register(tt.m, tt.opts)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestAccessor_UnknownMembers(t *testing.T) {
	s := newStore()
	a := register(t, s, fooModule{}, "foo", false)

	if _, err := a.Getter("nope"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Getter() error = %v", err)
	}
	if err := a.Commit("nope", nil); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Commit() error = %v", err)
	}
	if err := a.Dispatch(context.Background(), "nope", nil).Wait(context.Background()); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Dispatch() error = %v", err)
	}
	if err := a.Commit(SetterName("foo"), "x"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Commit(setter) without setters error = %v", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAccessor_CallLocalWarns(t *testing.T) {
	var out syncBuffer
	s := newStore()
	a, err := Register(fooModule{}, Options{Store: s, Name: "foo", Logger: zerolog.New(&out)})
	if err != nil {
		t.Fatal(err)
	}

	v, err := a.Call("assign", "outside")
	if err != nil || v != nil {
		t.Errorf("Call() = %v, %v; want nil, nil", v, err)
	}
	if foo, _ := Get[string](a, "foo"); foo != "init" {
		t.Errorf("foo = %q, local ran outside the module", foo)
	}
	if !strings.Contains(out.String(), "only mutations or actions should be called outside the module") {
		t.Errorf("log = %q, missing warning", out.String())
	}
	if _, err := a.Call("nope"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Call(nope) error = %v", err)
	}
}

func TestDescribe(t *testing.T) {
	s := newStore()
	a := register(t, s, &childModule{}, "child", true)

	desc := a.Describe()
	if desc.Name != "child" {
		t.Errorf("Name = %q", desc.Name)
	}
	if strings.Join(desc.State, ",") != "extra,foo" {
		t.Errorf("State = %v", desc.State)
	}
	if strings.Join(desc.Mutators, ",") != "reset,setExtra,updateFoo" {
		t.Errorf("Mutators = %v", desc.Mutators)
	}
	if strings.Join(desc.Setters, ",") != "set__extra,set__foo" {
		t.Errorf("Setters = %v", desc.Setters)
	}
	if len(desc.Lineage) != 3 {
		t.Errorf("Lineage = %v, want child, parent, Base", desc.Lineage)
	}
}
