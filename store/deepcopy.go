package store

// cloneTree deep-copies a state tree. Maps and slices are copied
// structurally; every other value (strings, numbers, bools, time.Time,
// custom value types) is copied by assignment. Pointer-shaped leaves would
// be shared between copies, so state trees should hold plain data.
//
// A structural copy is used instead of a JSON round-trip on purpose: a
// JSON round-trip silently turns dates into strings and drops anything
// encoding/json cannot represent, which is exactly the kind of quiet
// corruption history snapshots must not introduce.
func cloneTree(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneTree(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
