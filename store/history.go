package store

// history is the bounded undo/redo sequence of state snapshots.
//
// Entries at or below index hold pre-mutation snapshots (the undo range);
// entries past index hold the states that undos stepped away from (the
// redo tail). undo and redo exchange the current state with the slot they
// read, so each slot always holds the tree on the other side of the index.
// index is always within [-1, len(entries)-1].
type history struct {
	entries []map[string]any
	index   int
	limit   int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &history{index: -1, limit: limit}
}

// push records a snapshot taken immediately before a mutation. Committing
// past a prior undo point truncates the redo tail; exceeding the cap
// evicts the oldest entry, which shifts the index down with the slice.
func (h *history) push(snapshot map[string]any) {
	h.entries = append(h.entries[:h.index+1], snapshot)
	if len(h.entries) > h.limit {
		excess := len(h.entries) - h.limit
		h.entries = h.entries[excess:]
	}
	h.index = len(h.entries) - 1
}

func (h *history) canUndo() bool { return h.index >= 0 }

func (h *history) canRedo() bool { return h.index < len(h.entries)-1 }

// undo returns the snapshot at the current index, leaves current in its
// place for a later redo, and moves the index back.
func (h *history) undo(current map[string]any) (map[string]any, bool) {
	if !h.canUndo() {
		return nil, false
	}
	snapshot := h.entries[h.index]
	h.entries[h.index] = current
	h.index--
	return snapshot, true
}

// redo moves the index forward and returns the state stored there by the
// matching undo, leaving current in its place.
func (h *history) redo(current map[string]any) (map[string]any, bool) {
	if !h.canRedo() {
		return nil, false
	}
	h.index++
	snapshot := h.entries[h.index]
	h.entries[h.index] = current
	return snapshot, true
}

func (h *history) clear() {
	h.entries = nil
	h.index = -1
}

func (h *history) len() int { return len(h.entries) }
