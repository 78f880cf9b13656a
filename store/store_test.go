package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklet/appkit/event"
	"github.com/tracklet/appkit/storage"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func themedState() map[string]any {
	return map[string]any{
		"user": map[string]any{
			"preferences": map[string]any{
				"theme": "dark",
			},
		},
		"shows": map[string]any{
			"tracked": []any{},
		},
	}
}

func newThemedStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testLogger()
	}
	if cfg.InitialState == nil {
		cfg.InitialState = themedState()
	}
	s := New(cfg)
	s.RegisterMutation("setTheme", func(state map[string]any, payload any) {
		user := state["user"].(map[string]any)
		user["preferences"].(map[string]any)["theme"] = payload
	})
	return s
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func TestGetWalksDotPaths(t *testing.T) {
	s := newThemedStore(t, Config{})

	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
	assert.Nil(t, s.Get("user.preferences.missing"))
	assert.Nil(t, s.Get("missing.deep.path"))
	assert.Nil(t, s.Get("user.preferences.theme.deeper"), "scalar mid-path short-circuits")
}

func TestGetterTakesPrecedenceOverPath(t *testing.T) {
	s := newThemedStore(t, Config{InitialState: map[string]any{
		"user": map[string]any{"name": "raw"},
	}})
	s.RegisterGetter("user", func(state map[string]any) any { return "computed" })

	assert.Equal(t, "computed", s.Get("user"))
	assert.Equal(t, "raw", s.Get("user.name"), "dot path bypasses the getter")
}

func TestGetStateReturnsDetachedCopy(t *testing.T) {
	s := newThemedStore(t, Config{})

	copy1 := s.GetState()
	copy1["user"].(map[string]any)["preferences"].(map[string]any)["theme"] = "hacked"

	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
}

// ── Commit, undo, redo ────────────────────────────────────────────────────────

func TestCommitUnknownMutation(t *testing.T) {
	s := newThemedStore(t, Config{})

	err := s.Commit("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mutation "nope"`)
	assert.Equal(t, 0, s.HistoryLength(), "failed commit leaves no history entry")
}

func TestCommitThenUndoRestoresPriorState(t *testing.T) {
	s := newThemedStore(t, Config{})

	require.NoError(t, s.Commit("setTheme", "light"))
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	require.True(t, s.Undo())
	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
	assert.False(t, s.CanUndo())
	assert.True(t, s.CanRedo())

	require.True(t, s.Redo())
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
	assert.False(t, s.CanRedo())
}

func TestRedoReappliesUndoneChanges(t *testing.T) {
	s := newThemedStore(t, Config{})

	require.NoError(t, s.Commit("setTheme", "light"))
	require.NoError(t, s.Commit("setTheme", "sepia"))

	require.True(t, s.Undo())
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
	require.True(t, s.Undo())
	assert.Equal(t, "dark", s.Get("user.preferences.theme"))

	require.True(t, s.Redo())
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
	require.True(t, s.Redo())
	assert.Equal(t, "sepia", s.Get("user.preferences.theme"))

	// Walking back and forth again lands on the same states.
	require.True(t, s.Undo())
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
	require.True(t, s.Redo())
	assert.Equal(t, "sepia", s.Get("user.preferences.theme"))
	assert.False(t, s.CanRedo())
}

func TestUndoRedoAtBoundaryReturnsFalse(t *testing.T) {
	s := newThemedStore(t, Config{})

	assert.False(t, s.Undo())
	assert.False(t, s.Redo())

	require.NoError(t, s.Commit("setTheme", "light"))
	require.True(t, s.Undo())
	assert.False(t, s.Undo(), "second undo has nothing left")
}

func TestCommitAfterUndoTruncatesRedoTail(t *testing.T) {
	s := newThemedStore(t, Config{})

	require.NoError(t, s.Commit("setTheme", "light"))
	require.NoError(t, s.Commit("setTheme", "sepia"))
	require.True(t, s.Undo()) // back to "light"
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Commit("setTheme", "solarized"))
	assert.False(t, s.CanRedo(), "new commit discards the redo tail")

	require.True(t, s.Undo())
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	s := newThemedStore(t, Config{HistoryLimit: 50})

	for i := 0; i < 60; i++ {
		require.NoError(t, s.Commit("setTheme", fmt.Sprintf("theme-%d", i)))
	}
	assert.Equal(t, 50, s.HistoryLength())

	undos := 0
	for s.Undo() {
		undos++
	}
	assert.Equal(t, 50, undos)
	// The oldest surviving snapshot was taken before commit 10.
	assert.Equal(t, "theme-9", s.Get("user.preferences.theme"))
}

func TestHistoryLimitDefault(t *testing.T) {
	h := newHistory(0)
	assert.Equal(t, DefaultHistoryLimit, h.limit)
}

func TestUndoneStateIsDetachedFromHistory(t *testing.T) {
	s := newThemedStore(t, Config{})
	require.NoError(t, s.Commit("setTheme", "light"))
	require.True(t, s.Undo())

	// Mutating current state must not corrupt the redo snapshot source.
	require.NoError(t, s.Commit("setTheme", "sepia"))
	require.True(t, s.Undo())
	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
}

// ── Replace and reset ─────────────────────────────────────────────────────────

func TestReplaceStateIsUndoable(t *testing.T) {
	s := newThemedStore(t, Config{})

	s.ReplaceState(map[string]any{"fresh": true})
	assert.Equal(t, true, s.Get("fresh"))
	assert.Nil(t, s.Get("user"))

	require.True(t, s.Undo())
	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
}

func TestResetRestoresDefaultsAndClearsHistory(t *testing.T) {
	s := newThemedStore(t, Config{})

	require.NoError(t, s.Commit("setTheme", "light"))
	s.Reset()

	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
	assert.Equal(t, 0, s.HistoryLength())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

// ── Registration semantics ────────────────────────────────────────────────────

func TestRegistrationOverwritesWithoutError(t *testing.T) {
	s := newThemedStore(t, Config{})

	s.RegisterMutation("setTheme", func(state map[string]any, payload any) {
		state["overwritten"] = true
	})
	require.NoError(t, s.Commit("setTheme", "light"))

	assert.Equal(t, true, s.Get("overwritten"))
	assert.Equal(t, "dark", s.Get("user.preferences.theme"), "original mutation is gone")
}

func TestInvalidRegistrationIgnored(t *testing.T) {
	s := newThemedStore(t, Config{})

	s.RegisterMutation("", func(state map[string]any, payload any) {})
	s.RegisterMutation("nilFn", nil)

	assert.Error(t, s.Commit("nilFn", nil))
}

// ── Actions ───────────────────────────────────────────────────────────────────

func TestDispatchRunsAction(t *testing.T) {
	s := newThemedStore(t, Config{})

	s.RegisterAction("toggleTheme", func(ctx context.Context, actx *ActionContext, payload any) (any, error) {
		next := "light"
		if actx.Get("user.preferences.theme") == "light" {
			next = "dark"
		}
		if err := actx.Commit("setTheme", next); err != nil {
			return nil, err
		}
		return next, nil
	})

	result, err := s.Dispatch(context.Background(), "toggleTheme", nil)
	require.NoError(t, err)
	assert.Equal(t, "light", result)
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
}

func TestDispatchUnknownActionErrorsUnwrapped(t *testing.T) {
	s := newThemedStore(t, Config{})

	_, err := s.Dispatch(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "missing"`)
}

func TestActionErrorsPropagateUnwrapped(t *testing.T) {
	s := newThemedStore(t, Config{})
	cause := fmt.Errorf("bad batch")

	s.RegisterAction("importShows", func(ctx context.Context, actx *ActionContext, payload any) (any, error) {
		return nil, cause
	})

	_, err := s.Dispatch(context.Background(), "importShows", nil)
	assert.Same(t, cause, err)
}

func TestNestedDispatch(t *testing.T) {
	s := newThemedStore(t, Config{})

	s.RegisterAction("inner", func(ctx context.Context, actx *ActionContext, payload any) (any, error) {
		return actx.Commit("setTheme", payload), nil
	})
	s.RegisterAction("outer", func(ctx context.Context, actx *ActionContext, payload any) (any, error) {
		return actx.Dispatch(ctx, "inner", "light")
	})

	_, err := s.Dispatch(context.Background(), "outer", nil)
	require.NoError(t, err)
	assert.Equal(t, "light", s.Get("user.preferences.theme"))
}

// ── Subscriptions and events ──────────────────────────────────────────────────

func TestSubscribersReceiveEveryCommit(t *testing.T) {
	s := newThemedStore(t, Config{})

	var got []string
	unsubscribe := s.Subscribe(func(mutationName string, payload any) {
		got = append(got, mutationName)
	})

	require.NoError(t, s.Commit("setTheme", "light"))
	s.ReplaceState(map[string]any{})
	s.Undo()

	unsubscribe()
	require.NoError(t, s.Commit("setTheme", "sepia"))

	assert.Equal(t, []string{"setTheme", EventReplaced, EventUndo}, got)
}

func TestSubscribeToFiltersByMutation(t *testing.T) {
	s := newThemedStore(t, Config{})
	s.RegisterMutation("other", func(state map[string]any, payload any) {})

	var got []any
	s.SubscribeTo("setTheme", func(mutationName string, payload any) {
		got = append(got, payload)
	})

	require.NoError(t, s.Commit("other", 1))
	require.NoError(t, s.Commit("setTheme", "light"))

	assert.Equal(t, []any{"light"}, got)
}

func TestCommitEmitsStateChange(t *testing.T) {
	bus := event.NewBus(event.Config{Logger: testLogger()})
	s := newThemedStore(t, Config{Bus: bus})

	var events []ChangeEvent
	bus.Subscribe(EventChange, func(payload any) {
		events = append(events, payload.(ChangeEvent))
	})

	require.NoError(t, s.Commit("setTheme", "light"))
	bus.Close()

	require.Len(t, events, 1)
	assert.Equal(t, "setTheme", events[0].Mutation)
	assert.Equal(t, "light", events[0].Payload)
}

func TestUndoRedoEmitDedicatedEvents(t *testing.T) {
	bus := event.NewBus(event.Config{Logger: testLogger()})
	s := newThemedStore(t, Config{Bus: bus})

	var got []string
	for _, name := range []string{EventChange, EventUndo, EventRedo} {
		n := name
		bus.Subscribe(n, func(payload any) { got = append(got, n) })
	}

	require.NoError(t, s.Commit("setTheme", "light"))
	s.Undo()
	s.Redo()
	bus.Close()

	assert.Equal(t, []string{EventChange, EventUndo, EventRedo}, got)
}

// ── Persistence ───────────────────────────────────────────────────────────────

func TestCommitPersistsState(t *testing.T) {
	driver := storage.NewMemory()
	s := newThemedStore(t, Config{Storage: driver})

	require.NoError(t, s.Commit("setTheme", "light"))

	data, ok, err := driver.Get(PersistKey)
	require.NoError(t, err)
	require.True(t, ok)

	var tree map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))
	user := tree["user"].(map[string]any)
	assert.Equal(t, "light", user["preferences"].(map[string]any)["theme"])
}

func TestPersistedStateLoadsOnConstruction(t *testing.T) {
	driver := storage.NewMemory()
	require.NoError(t, driver.Set(PersistKey, []byte(`{"user":{"preferences":{"theme":"sepia"}}}`)))

	s := newThemedStore(t, Config{Storage: driver})
	assert.Equal(t, "sepia", s.Get("user.preferences.theme"))
}

func TestCorruptPersistedStateFallsBackToDefaults(t *testing.T) {
	driver := storage.NewMemory()
	require.NoError(t, driver.Set(PersistKey, []byte(`{not json`)))

	s := newThemedStore(t, Config{Storage: driver})
	assert.Equal(t, "dark", s.Get("user.preferences.theme"))
}

func TestUndoPersists(t *testing.T) {
	driver := storage.NewMemory()
	s := newThemedStore(t, Config{Storage: driver})

	require.NoError(t, s.Commit("setTheme", "light"))
	require.True(t, s.Undo())

	data, _, err := driver.Get(PersistKey)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))
	user := tree["user"].(map[string]any)
	assert.Equal(t, "dark", user["preferences"].(map[string]any)["theme"])
}

// ── Deep copy ─────────────────────────────────────────────────────────────────

func TestCloneTreeIsStructural(t *testing.T) {
	src := map[string]any{
		"list": []any{map[string]any{"n": 1}},
		"nested": map[string]any{
			"value": "x",
		},
	}

	dst := cloneTree(src)
	dst["nested"].(map[string]any)["value"] = "changed"
	dst["list"].([]any)[0].(map[string]any)["n"] = 2

	assert.Equal(t, "x", src["nested"].(map[string]any)["value"])
	assert.Equal(t, 1, src["list"].([]any)[0].(map[string]any)["n"])
}

func TestCloneTreeNil(t *testing.T) {
	assert.Nil(t, cloneTree(nil))
}
