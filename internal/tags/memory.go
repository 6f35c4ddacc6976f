// Package tags provides in-process storage for region tags.
package tags

import (
	"sort"
	"sync"
)

// Memory is a map-backed tag store. Payloads are copied on the way in and
// out so callers cannot alias stored bytes.
type Memory struct {
	mu   sync.RWMutex
	tags map[string][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tags: make(map[string][]byte)}
}

// Put stores payload under key, replacing any previous value.
func (m *Memory) Put(key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[key] = append([]byte(nil), payload...)
	return nil
}

// Get returns the payload stored under key.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.tags[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), p...), true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.tags))
	for k := range m.tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
