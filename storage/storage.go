// Package storage defines the persistence port the state store writes
// through, plus the two drivers the runtime ships: an in-memory driver for
// tests and a JSON-file driver matching the original application's data/
// directory layout (one <key>.json file per key).
package storage

import (
	"fmt"
	"strings"
	"sync"
)

// Driver is the persistence port. The store calls it with a single fixed
// key and JSON-encoded values; drivers never interpret the payload.
type Driver interface {
	// Get returns the stored value for key, with ok=false when the key
	// has never been written.
	Get(key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
}

// validKey rejects keys that would escape a file-based driver's directory.
func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage: key must be non-empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// ── Memory ────────────────────────────────────────────────────────────────────

// Memory is a map-backed Driver for tests and ephemeral runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory driver.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte{}, value...)
	return nil
}
