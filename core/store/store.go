// Package store provides the in-memory reactive store that class-style
// modules are registered into.
//
// The store keeps one state bag per namespace and publishes the whole state
// tree as an immutable snapshot. Commits are serialised: a mutation runs
// against a private copy of its namespace's state, and the copy replaces the
// namespace in a new snapshot only when the mutation succeeds. Readers never
// take locks; they load the current snapshot and see every committed value.
//
// Mutations, getters and actions are addressed by qualified names of the form
// "<namespace>/<member>".
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/modstore/ports"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateModule is returned when a namespace is registered twice
	// and hot reload is not enabled.
	ErrDuplicateModule = errors.New("store: module already exists")
	// ErrUnknownModule is returned when a namespace is not registered.
	ErrUnknownModule = errors.New("store: unknown module")
	// ErrUnknownMutation is returned when committing an undeclared mutation.
	ErrUnknownMutation = errors.New("store: unknown mutation")
	// ErrUnknownAction is returned when dispatching an undeclared action.
	ErrUnknownAction = errors.New("store: unknown action")
	// ErrUnknownGetter is returned when reading an undeclared getter.
	ErrUnknownGetter = errors.New("store: unknown getter")
	// ErrUnknownField is returned when reading a field missing from a state bag.
	ErrUnknownField = errors.New("store: unknown state field")
	// ErrInvalidName is returned for empty namespaces or malformed qualified names.
	ErrInvalidName = errors.New("store: invalid name")
	// ErrGetterCycle is returned when getters reference each other without end.
	ErrGetterCycle = errors.New("store: getter evaluation too deep")
	// ErrPanic wraps a panic recovered from a mutation, getter or action body.
	ErrPanic = errors.New("store: panic in module function")
)

// DefaultGetterCacheSize is the number of memoised getter values kept.
const DefaultGetterCacheSize = 256

const maxGetterDepth = 64

// State is one module's state bag, keyed by field name.
type State map[string]any

// Clone returns a shallow copy of s. Values keep their identity.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GetterSource resolves another getter of the same namespace by its local name.
type GetterSource func(name string) (any, error)

// GetterFunc computes a derived value from a module's state. A returned
// error fails the read and is never memoised.
type GetterFunc func(state State, getters GetterSource) (any, error)

// MutationFunc changes a module's state synchronously.
type MutationFunc func(state State, payload any) error

// ActionFunc runs asynchronous logic that commits mutations and dispatches actions.
type ActionFunc func(ctx ActionContext, payload any) error

// Module is the shape a namespace is registered with.
type Module struct {
	State     State
	Getters   map[string]GetterFunc
	Mutations map[string]MutationFunc
	Actions   map[string]ActionFunc
}

// tree is an immutable snapshot of every namespace's state.
type tree struct {
	version uint64
	states  map[string]State
}

func (t *tree) with(namespace string, state State) *tree {
	states := make(map[string]State, len(t.states)+1)
	for k, v := range t.states {
		states[k] = v
	}
	states[namespace] = state
	return &tree{version: t.version + 1, states: states}
}

type cachedGetter struct {
	version uint64
	value   any
}

// Store is a namespaced, reactive state container.
type Store struct {
	// writeMu serialises commits and registrations.
	writeMu sync.Mutex
	tree    atomic.Pointer[tree]

	defsMu  sync.RWMutex
	modules map[string]*Module

	hot       atomic.Bool
	cacheSize int
	getters   *lru.Cache[string, cachedGetter]

	mutations *bus[MutationRecord]
	actions   *bus[ActionRecord]
	watchers  *watcherSet

	observer Observer
	clock    ports.Clock
	ids      ports.IDGenerator
	logger   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithObserver sets the observer notified about store activity.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock sets the clock used for record timestamps and durations.
func WithClock(c ports.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithIDGenerator sets the generator used for dispatch IDs.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithGetterCache sets how many getter values are memoised.
// A size of zero or less disables memoisation.
func WithGetterCache(size int) Option {
	return func(s *Store) { s.cacheSize = size }
}

// WithHotReload makes duplicate registrations replace the existing module.
func WithHotReload(enabled bool) Option {
	return func(s *Store) { s.hot.Store(enabled) }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		modules:   make(map[string]*Module),
		cacheSize: DefaultGetterCacheSize,
		observer:  NopObserver{},
		clock:     systemClock{},
		ids:       uuidGenerator{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cacheSize > 0 {
		cache, err := lru.New[string, cachedGetter](s.cacheSize)
		if err == nil {
			s.getters = cache
		}
	}

	s.mutations = newBus[MutationRecord](s.logger)
	s.actions = newBus[ActionRecord](s.logger)
	s.watchers = &watcherSet{logger: s.logger}
	s.tree.Store(&tree{states: make(map[string]State)})
	return s
}

// SetHotReload toggles replacement of duplicate registrations at runtime.
func (s *Store) SetHotReload(enabled bool) {
	if s.hot.Swap(enabled) != enabled {
		s.logger.Info().Bool("hot_reload", enabled).Msg("store hot reload changed")
	}
}

// HotReload reports whether duplicate registrations replace existing modules.
func (s *Store) HotReload() bool {
	return s.hot.Load()
}

// RegisterModule registers mod under namespace. If the namespace already
// exists it fails with ErrDuplicateModule, unless hot reload is enabled, in
// which case the module is replaced via HotUpdate.
func (s *Store) RegisterModule(namespace string, mod Module) error {
	if err := validNamespace(namespace); err != nil {
		return err
	}

	s.writeMu.Lock()
	cur := s.tree.Load()
	if _, exists := cur.states[namespace]; exists {
		s.writeMu.Unlock()
		if !s.hot.Load() {
			return fmt.Errorf("register %q: %w", namespace, ErrDuplicateModule)
		}
		return s.HotUpdate(namespace, mod)
	}

	s.defsMu.Lock()
	s.modules[namespace] = normalise(mod)
	s.defsMu.Unlock()

	s.tree.Store(cur.with(namespace, mod.State.Clone()))
	s.writeMu.Unlock()

	s.observer.ModuleRegistered(namespace, false)
	s.logger.Debug().
		Str("module", namespace).
		Int("state", len(mod.State)).
		Int("getters", len(mod.Getters)).
		Int("mutations", len(mod.Mutations)).
		Int("actions", len(mod.Actions)).
		Msg("module registered")
	s.watchers.notify()
	return nil
}

// HotUpdate replaces the functions of an existing namespace in place.
// Existing state values are kept; fields new to mod start at their initial value.
func (s *Store) HotUpdate(namespace string, mod Module) error {
	s.writeMu.Lock()
	cur := s.tree.Load()
	existing, ok := cur.states[namespace]
	if !ok {
		s.writeMu.Unlock()
		return fmt.Errorf("hot update %q: %w", namespace, ErrUnknownModule)
	}

	merged := existing.Clone()
	for k, v := range mod.State {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	s.defsMu.Lock()
	s.modules[namespace] = normalise(mod)
	s.defsMu.Unlock()

	s.tree.Store(cur.with(namespace, merged))
	s.writeMu.Unlock()

	s.observer.ModuleRegistered(namespace, true)
	s.logger.Info().Str("module", namespace).Msg("module hot replaced")
	s.watchers.notify()
	return nil
}

// Has reports whether namespace is registered.
func (s *Store) Has(namespace string) bool {
	_, ok := s.tree.Load().states[namespace]
	return ok
}

// Modules returns the registered namespaces in sorted order.
func (s *Store) Modules() []string {
	t := s.tree.Load()
	names := make([]string, 0, len(t.states))
	for name := range t.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Read returns the live value of one state field.
func (s *Store) Read(namespace, field string) (any, error) {
	st, ok := s.tree.Load().states[namespace]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", namespace, ErrUnknownModule)
	}
	v, ok := st[field]
	if !ok {
		return nil, fmt.Errorf("read %s/%s: %w", namespace, field, ErrUnknownField)
	}
	return v, nil
}

// State returns a shallow copy of one namespace's current state.
func (s *Store) State(namespace string) (State, error) {
	st, ok := s.tree.Load().states[namespace]
	if !ok {
		return nil, fmt.Errorf("state %q: %w", namespace, ErrUnknownModule)
	}
	return st.Clone(), nil
}

// Snapshot returns shallow copies of every namespace's current state.
func (s *Store) Snapshot() map[string]State {
	t := s.tree.Load()
	out := make(map[string]State, len(t.states))
	for ns, st := range t.states {
		out[ns] = st.Clone()
	}
	return out
}

// Version returns the number of state changes published so far.
func (s *Store) Version() uint64 {
	return s.tree.Load().version
}

// Commit runs the mutation named by qualified with payload.
// A failing mutation leaves the state untouched.
func (s *Store) Commit(qualified string, payload any) error {
	namespace, name, err := splitQualified(qualified)
	if err != nil {
		return err
	}
	mod, err := s.module(namespace)
	if err != nil {
		return fmt.Errorf("commit %q: %w", qualified, err)
	}
	fn, ok := mod.Mutations[name]
	if !ok {
		return fmt.Errorf("commit %q: %w", qualified, ErrUnknownMutation)
	}

	start := s.clock.Now()

	s.writeMu.Lock()
	cur := s.tree.Load()
	working := cur.states[namespace].Clone()
	err = runMutation(fn, working, payload)
	var next *tree
	if err == nil {
		next = cur.with(namespace, working)
		s.tree.Store(next)
	}
	s.writeMu.Unlock()

	s.observer.Committed(namespace, name, s.clock.Now().Sub(start), err)
	if err != nil {
		s.logger.Debug().Err(err).Str("module", namespace).Str("mutation", name).Msg("mutation failed")
		return fmt.Errorf("commit %q: %w", qualified, err)
	}

	s.mutations.publish(namespace, qualified, MutationRecord{
		Type:      qualified,
		Namespace: namespace,
		Mutation:  name,
		Payload:   payload,
		Version:   next.version,
		Time:      start,
	})
	s.watchers.notify()
	return nil
}

// Getter returns the value of the getter named by qualified.
// Values are memoised until the next state change.
func (s *Store) Getter(qualified string) (any, error) {
	return s.evalGetter(s.tree.Load(), qualified, 0)
}

func (s *Store) evalGetter(t *tree, qualified string, depth int) (any, error) {
	if depth > maxGetterDepth {
		return nil, fmt.Errorf("getter %q: %w", qualified, ErrGetterCycle)
	}
	namespace, name, err := splitQualified(qualified)
	if err != nil {
		return nil, err
	}

	if s.getters != nil {
		if c, ok := s.getters.Get(qualified); ok && c.version == t.version {
			s.observer.GetterEvaluated(namespace, name, true)
			return c.value, nil
		}
	}

	mod, err := s.module(namespace)
	if err != nil {
		return nil, fmt.Errorf("getter %q: %w", qualified, err)
	}
	fn, ok := mod.Getters[name]
	if !ok {
		return nil, fmt.Errorf("getter %q: %w", qualified, ErrUnknownGetter)
	}

	source := func(local string) (any, error) {
		return s.evalGetter(t, namespace+"/"+local, depth+1)
	}
	v, err := runGetter(fn, t.states[namespace], source)
	if err != nil {
		return nil, fmt.Errorf("getter %q: %w", qualified, err)
	}

	if s.getters != nil {
		s.getters.Add(qualified, cachedGetter{version: t.version, value: v})
	}
	s.observer.GetterEvaluated(namespace, name, false)
	return v, nil
}

// Dispatch starts the action named by qualified and returns its pending result.
// The action body runs on its own goroutine; errors, including recovered
// panics, reject the returned future.
func (s *Store) Dispatch(ctx context.Context, qualified string, payload any) *Future {
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFuture(s.ids.New())

	namespace, name, err := splitQualified(qualified)
	if err != nil {
		f.resolve(err)
		return f
	}
	mod, err := s.module(namespace)
	if err != nil {
		f.resolve(fmt.Errorf("dispatch %q: %w", qualified, err))
		return f
	}
	fn, ok := mod.Actions[name]
	if !ok {
		f.resolve(fmt.Errorf("dispatch %q: %w", qualified, ErrUnknownAction))
		return f
	}

	rec := ActionRecord{
		ID:        f.ID(),
		Type:      qualified,
		Namespace: namespace,
		Action:    name,
		Payload:   payload,
		Time:      s.clock.Now(),
	}
	s.observer.Dispatched(namespace, name)
	s.actions.publish(namespace, qualified, rec)

	actx := ActionContext{ctx: ctx, store: s, namespace: namespace, id: f.ID()}
	go func() {
		start := s.clock.Now()
		err := runAction(fn, actx, payload)
		s.observer.ActionFinished(namespace, name, s.clock.Now().Sub(start), err)
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("module", namespace).
				Str("action", name).
				Str("dispatch_id", rec.ID).
				Msg("action rejected")
		}
		f.resolve(err)
	}()
	return f
}

// Subscribe registers fn for committed mutations matching pattern:
// "*" for all, "<namespace>/*" for one module, or an exact qualified name.
// The returned function removes the subscription.
func (s *Store) Subscribe(pattern string, fn func(MutationRecord)) func() {
	return s.mutations.subscribe(pattern, fn)
}

// SubscribeAction registers fn for dispatched actions matching pattern.
// Handlers run before the action body starts.
func (s *Store) SubscribeAction(pattern string, fn func(ActionRecord)) func() {
	return s.actions.subscribe(pattern, fn)
}

// Watch calls cb with the new and old result of fn whenever a state change
// makes fn return a different value. The returned function stops watching.
func (s *Store) Watch(fn func() any, cb func(newValue, oldValue any)) func() {
	return s.watchers.add(fn, cb)
}

func (s *Store) module(namespace string) (*Module, error) {
	s.defsMu.RLock()
	defer s.defsMu.RUnlock()
	mod, ok := s.modules[namespace]
	if !ok {
		return nil, ErrUnknownModule
	}
	return mod, nil
}

// ActionContext is what the store hands to an action body. Member names
// are local to the action's namespace.
type ActionContext struct {
	ctx       context.Context
	store     *Store
	namespace string
	id        string
}

// Context returns the context the action was dispatched with.
func (c ActionContext) Context() context.Context { return c.ctx }

// ID returns the dispatch ID.
func (c ActionContext) ID() string { return c.id }

// Namespace returns the namespace the action belongs to.
func (c ActionContext) Namespace() string { return c.namespace }

// Read returns the live value of a state field of the action's module.
func (c ActionContext) Read(field string) (any, error) {
	return c.store.Read(c.namespace, field)
}

// Getter returns a getter of the action's module.
func (c ActionContext) Getter(name string) (any, error) {
	return c.store.Getter(c.namespace + "/" + name)
}

// Commit commits a mutation of the action's module.
func (c ActionContext) Commit(name string, payload any) error {
	return c.store.Commit(c.namespace+"/"+name, payload)
}

// Dispatch dispatches an action of the action's module.
func (c ActionContext) Dispatch(name string, payload any) *Future {
	return c.store.Dispatch(c.ctx, c.namespace+"/"+name, payload)
}

// Qualify joins a namespace and a member name.
func Qualify(namespace, name string) string {
	return namespace + "/" + name
}

func splitQualified(qualified string) (namespace, name string, err error) {
	namespace, name, ok := strings.Cut(qualified, "/")
	if !ok || namespace == "" || name == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, qualified)
	}
	return namespace, name, nil
}

func validNamespace(namespace string) error {
	if namespace == "" || strings.Contains(namespace, "/") {
		return fmt.Errorf("%w: namespace %q", ErrInvalidName, namespace)
	}
	return nil
}

func normalise(mod Module) *Module {
	out := mod
	if out.Getters == nil {
		out.Getters = map[string]GetterFunc{}
	}
	if out.Mutations == nil {
		out.Mutations = map[string]MutationFunc{}
	}
	if out.Actions == nil {
		out.Actions = map[string]ActionFunc{}
	}
	return &out
}

func runMutation(fn MutationFunc, state State, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(state, payload)
}

func runGetter(fn GetterFunc, state State, source GetterSource) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(state, source)
}

func runAction(fn ActionFunc, ctx ActionContext, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, payload)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type uuidGenerator struct{}

func (uuidGenerator) New() string { return uuid.NewString() }
