package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory hive. All registrations are lost when
// the process exits. The zero value is not usable; call NewMemoryStore.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory hive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]map[string]string)}
}

// Set writes one value, creating the key as needed.
func (m *MemoryStore) Set(ctx context.Context, key, name, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.keys[key]
	if !ok {
		values = make(map[string]string)
		m.keys[key] = values
	}
	values[name] = data
	return nil
}

// Get reads one value.
func (m *MemoryStore) Get(ctx context.Context, key, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values, ok := m.keys[key]
	if !ok {
		return "", false, nil
	}
	data, ok := values[name]
	return data, ok, nil
}

// DeleteKey removes a key and its whole subtree.
func (m *MemoryStore) DeleteKey(ctx context.Context, key string) error {
	prefix := key + Separator

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	for k := range m.keys {
		if strings.HasPrefix(k, prefix) {
			delete(m.keys, k)
		}
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for k := range m.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Values lists the values under one key, sorted by name.
func (m *MemoryStore) Values(ctx context.Context, key string) ([]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values, ok := m.keys[key]
	if !ok {
		return nil, nil
	}
	out := make([]Value, 0, len(values))
	for name, data := range values {
		out = append(out, Value{Key: key, Name: name, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close releases the hive.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored keys, for tests and diagnostics.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
