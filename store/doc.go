// Package store implements the application state store: a single nested
// state tree changed only through registered mutations, with registered
// getters for derived values, possibly-async actions, bounded undo/redo
// history, change notification and port-based persistence.
//
// The execution model is cooperative and single-threaded: mutations run
// synchronously and never suspend, so the pre-mutation snapshot and the
// mutated tree form an atomic pair. Actions may suspend (they take a
// context and may do I/O); state observed across such a suspension point
// may have been changed by an interleaved commit — that is documented
// behavior, not a race to lock away.
//
//	s := store.New(store.Config{
//	    Bus:          bus,
//	    InitialState: map[string]any{"user": map[string]any{"preferences": map[string]any{"theme": "dark"}}},
//	    Storage:      driver,
//	})
//
//	s.RegisterMutation("setTheme", func(state map[string]any, payload any) {
//	    prefs := state["user"].(map[string]any)["preferences"].(map[string]any)
//	    prefs["theme"] = payload
//	})
//
//	_ = s.Commit("setTheme", "light")
//	s.Get("user.preferences.theme") // "light"
//	s.Undo()                        // back to "dark"
package store
