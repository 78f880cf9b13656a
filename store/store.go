package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tracklet/appkit/event"
	"github.com/tracklet/appkit/storage"
)

// DefaultHistoryLimit caps the undo history when no limit is configured.
const DefaultHistoryLimit = 50

// PersistKey is the fixed storage key the store persists under.
const PersistKey = "app-state"

// Event names emitted on the event bus for cross-cutting listeners.
// Direct subscribers receive the same names as their mutation argument for
// the non-commit notifications.
const (
	EventChange   = "state:change"
	EventReplaced = "state:replaced"
	EventUndo     = "state:undo"
	EventRedo     = "state:redo"
)

// ChangeEvent is the bus payload for all four store events.
type ChangeEvent struct {
	Mutation string `json:"mutation"`
	Payload  any    `json:"payload,omitempty"`
}

// Mutation synchronously mutates the live state tree in place. Mutations
// must not block or suspend: the pre-mutation snapshot and the mutated
// tree have to be an atomic pair relative to any interleaving.
type Mutation func(state map[string]any, payload any)

// Action may read state, commit mutations and dispatch further actions.
// Errors propagate to the caller unwrapped, unlike command failures.
type Action func(ctx context.Context, actx *ActionContext, payload any) (any, error)

// Getter computes a derived value from the state tree.
type Getter func(state map[string]any) any

// Subscriber is invoked with (mutationName, payload) on every commit and
// with the state:replaced/state:undo/state:redo names on those operations.
type Subscriber func(mutationName string, payload any)

// ActionContext is handed to actions. State is the live tree: reading it
// is fine, mutating it outside Commit is a usage violation the runtime
// cannot enforce.
type ActionContext struct {
	State    map[string]any
	Commit   func(mutationName string, payload any) error
	Dispatch func(ctx context.Context, actionName string, payload any) (any, error)
	Get      func(path string) any
}

// Config configures a Store.
type Config struct {
	// Bus receives the state events. Optional; nil disables bus emission
	// but direct subscribers still fire.
	Bus *event.Bus

	// Logger defaults to the standard logrus logger.
	Logger logrus.FieldLogger

	// InitialState is the default tree. Reset() restores it. The store
	// deep-copies it, so the caller's map stays untouched.
	InitialState map[string]any

	// HistoryLimit caps undo history; DefaultHistoryLimit when zero.
	HistoryLimit int

	// Storage enables persistence when non-nil: state loads from it at
	// construction and every commit/replace writes back. Values cross
	// this port as JSON, so persisted state must be JSON-safe.
	Storage storage.Driver
}

// ── Store ─────────────────────────────────────────────────────────────────────

// Store is the application state store: registered mutations are the only
// sanctioned way to change the tree, every commit snapshots the prior
// state into bounded undo history, and every change notifies direct
// subscribers and the event bus.
type Store struct {
	mu sync.RWMutex

	state   map[string]any
	initial map[string]any

	mutations map[string]Mutation
	actions   map[string]Action
	getters   map[string]Getter

	subscribers []*storeSubscriber

	hist *history

	bus     *event.Bus
	log     logrus.FieldLogger
	storage storage.Driver
}

// storeSubscriber is one direct subscription, optionally filtered to a
// single mutation name.
type storeSubscriber struct {
	id       string
	mutation string // empty = all
	fn       Subscriber
}

// New creates a store, loading persisted state when a storage driver is
// configured and a persisted document exists.
func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.InitialState == nil {
		cfg.InitialState = map[string]any{}
	}

	s := &Store{
		state:     cloneTree(cfg.InitialState),
		initial:   cloneTree(cfg.InitialState),
		mutations: make(map[string]Mutation),
		actions:   make(map[string]Action),
		getters:   make(map[string]Getter),
		hist:      newHistory(cfg.HistoryLimit),
		bus:       cfg.Bus,
		log:       cfg.Logger,
		storage:   cfg.Storage,
	}
	s.load()
	return s
}

// load replaces the default tree with the persisted one, if any.
func (s *Store) load() {
	if s.storage == nil {
		return
	}
	data, ok, err := s.storage.Get(PersistKey)
	if err != nil {
		s.log.WithError(err).Warn("store: loading persisted state failed")
		return
	}
	if !ok {
		return
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		s.log.WithError(err).Warn("store: persisted state is not valid JSON, using defaults")
		return
	}
	s.state = tree
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterMutation registers a mutation. Re-registering a name overwrites
// the previous function with a warning — iterating on mutations at runtime
// is normal during UI development, so this registry is deliberately looser
// than the container and command bus.
func (s *Store) RegisterMutation(name string, fn Mutation) {
	s.register("mutation", name, fn == nil, func() {
		_, dup := s.mutations[name]
		s.warnOverwrite("mutation", name, dup)
		s.mutations[name] = fn
	})
}

// RegisterAction registers an action, overwriting with a warning.
func (s *Store) RegisterAction(name string, fn Action) {
	s.register("action", name, fn == nil, func() {
		_, dup := s.actions[name]
		s.warnOverwrite("action", name, dup)
		s.actions[name] = fn
	})
}

// RegisterGetter registers a getter, overwriting with a warning. Getters
// take precedence over raw paths in Get.
func (s *Store) RegisterGetter(name string, fn Getter) {
	s.register("getter", name, fn == nil, func() {
		_, dup := s.getters[name]
		s.warnOverwrite("getter", name, dup)
		s.getters[name] = fn
	})
}

func (s *Store) register(kind, name string, nilFn bool, put func()) {
	if strings.TrimSpace(name) == "" || nilFn {
		s.log.WithField("name", name).Warnf("store: ignoring invalid %s registration", kind)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	put()
}

func (s *Store) warnOverwrite(kind, name string, dup bool) {
	if dup {
		s.log.WithField("name", name).Warnf("store: %s overwritten", kind)
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// Get resolves a registered getter by name, or failing that walks path as
// a dot-separated route through the state tree ("user.preferences.theme").
// Missing intermediate keys short-circuit to nil.
func (s *Store) Get(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if getter, ok := s.getters[path]; ok {
		return getter(s.state)
	}
	return walk(s.state, path)
}

// walk resolves a dot path against a tree.
func walk(tree map[string]any, path string) any {
	var current any = tree
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[key]
		if !ok {
			return nil
		}
	}
	return current
}

// GetState returns a deep copy of the tree, never the live reference, so
// callers cannot bypass Commit.
func (s *Store) GetState() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTree(s.state)
}

// ── Commits and actions ───────────────────────────────────────────────────────

// Commit applies a registered mutation: snapshot the pre-mutation state
// into history, run the mutation against the live tree, notify
// subscribers, emit state:change, persist.
func (s *Store) Commit(mutationName string, payload any) error {
	s.mu.Lock()
	mutation, ok := s.mutations[mutationName]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: unknown mutation %q", mutationName)
	}

	s.hist.push(cloneTree(s.state))
	mutation(s.state, payload)
	s.mu.Unlock()

	s.notify(mutationName, payload)
	s.emit(EventChange, ChangeEvent{Mutation: mutationName, Payload: payload})
	s.persist()
	return nil
}

// Dispatch runs a registered action with a context bound to this store.
// Action errors are returned unwrapped.
func (s *Store) Dispatch(ctx context.Context, actionName string, payload any) (any, error) {
	s.mu.RLock()
	action, ok := s.actions[actionName]
	state := s.state
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("store: unknown action %q", actionName)
	}

	actx := &ActionContext{
		State:    state,
		Commit:   s.Commit,
		Dispatch: s.Dispatch,
		Get:      s.Get,
	}
	return action(ctx, actx, payload)
}

// ── Subscriptions ─────────────────────────────────────────────────────────────

// Subscribe registers a callback for every commit and state operation.
// The returned closure removes exactly this subscription.
func (s *Store) Subscribe(fn Subscriber) func() {
	return s.subscribe("", fn)
}

// SubscribeTo registers a callback filtered to one mutation name.
func (s *Store) SubscribeTo(mutationName string, fn Subscriber) func() {
	return s.subscribe(mutationName, fn)
}

func (s *Store) subscribe(mutation string, fn Subscriber) func() {
	sub := &storeSubscriber{id: uuid.NewString(), mutation: mutation, fn: fn}

	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subscribers {
			if existing.id == sub.id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// notify invokes direct subscribers outside the store lock.
func (s *Store) notify(mutationName string, payload any) {
	s.mu.RLock()
	snapshot := append([]*storeSubscriber{}, s.subscribers...)
	s.mu.RUnlock()

	for _, sub := range snapshot {
		if sub.mutation == "" || sub.mutation == mutationName {
			sub.fn(mutationName, payload)
		}
	}
}

// ── State replacement, reset, history ─────────────────────────────────────────

// ReplaceState pushes history, swaps the entire tree and persists.
func (s *Store) ReplaceState(newState map[string]any) {
	s.mu.Lock()
	s.hist.push(cloneTree(s.state))
	s.state = cloneTree(newState)
	s.mu.Unlock()

	s.notify(EventReplaced, nil)
	s.emit(EventReplaced, ChangeEvent{Mutation: EventReplaced})
	s.persist()
}

// Reset restores the default tree and clears history entirely — unlike
// Undo, nothing is kept for Redo.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = cloneTree(s.initial)
	s.hist.clear()
	s.mu.Unlock()

	s.notify(EventReplaced, nil)
	s.emit(EventReplaced, ChangeEvent{Mutation: EventReplaced})
	s.persist()
}

// Undo restores the snapshot at the current history index and moves the
// index back, keeping the undone state around so Redo can reapply it. At
// the boundary it returns false with a warning instead of erroring.
func (s *Store) Undo() bool {
	s.mu.Lock()
	snapshot, ok := s.hist.undo(cloneTree(s.state))
	if !ok {
		s.mu.Unlock()
		s.log.Warn("store: nothing to undo")
		return false
	}
	s.state = cloneTree(snapshot)
	s.mu.Unlock()

	s.notify(EventUndo, nil)
	s.emit(EventUndo, ChangeEvent{Mutation: EventUndo})
	s.persist()
	return true
}

// Redo moves the history index forward and restores the state the
// matching Undo stepped away from.
func (s *Store) Redo() bool {
	s.mu.Lock()
	snapshot, ok := s.hist.redo(cloneTree(s.state))
	if !ok {
		s.mu.Unlock()
		s.log.Warn("store: nothing to redo")
		return false
	}
	s.state = cloneTree(snapshot)
	s.mu.Unlock()

	s.notify(EventRedo, nil)
	s.emit(EventRedo, ChangeEvent{Mutation: EventRedo})
	s.persist()
	return true
}

// CanUndo reports whether Undo would succeed.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hist.canUndo()
}

// CanRedo reports whether Redo would succeed.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hist.canRedo()
}

// HistoryLength returns the number of snapshots currently held.
func (s *Store) HistoryLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hist.len()
}

// ── Internals ─────────────────────────────────────────────────────────────────

func (s *Store) emit(eventName string, payload ChangeEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventName, payload)
}

// persist writes the tree through the storage port. Persistence failures
// are logged, never surfaced: a full disk must not break a commit.
func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	s.mu.RLock()
	data, err := json.Marshal(s.state)
	s.mu.RUnlock()
	if err != nil {
		s.log.WithError(err).Warn("store: state is not JSON-serializable, skipping persist")
		return
	}
	if err := s.storage.Set(PersistKey, data); err != nil {
		s.log.WithError(err).Warn("store: persisting state failed")
	}
}
