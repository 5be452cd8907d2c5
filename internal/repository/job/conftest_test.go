package job

import (
	"context"
	"sync"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
)

// memStore is an in-memory stand-in for the Redis store. Both compare-and-set
// methods are atomic under the mutex, matching the server-side scripts.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string

	hsetErr error
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
	}
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HCompareAndSet(
	_ context.Context, key, field, expected string, fields map[string]string,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok || h[field] != expected {
		return false, nil
	}
	for k, v := range fields {
		h[k] = v
	}
	return true, nil
}

func (m *memStore) HCompareAndSetIndexed(
	_ context.Context, key, field, expected string, fields map[string]string, idx db.IndexEntry,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok || h[field] != expected {
		return false, nil
	}
	for k, v := range fields {
		h[k] = v
	}
	cur := m.hashes[idx.Key]
	if cur != nil && orderAfter(cur["order"], idx.Order) {
		return true, nil
	}
	m.hashes[idx.Key] = map[string]string{"value": idx.Value, "order": idx.Order}
	return true, nil
}

// orderAfter reports whether decimal a is larger than decimal b.
func orderAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}
