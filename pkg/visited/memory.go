package visited

import (
	"fmt"
	"sync"
)

// MemoryStore is a map-backed Store with an optional entry bound.
type MemoryStore struct {
	mu      sync.RWMutex
	lengths map[string]uint32
	meta    Meta
	max     uint64
	closed  bool
	counters
}

// NewMemoryStore creates an in-memory store holding at most maxEntries
// keys. Zero means unbounded.
func NewMemoryStore(maxEntries uint64) *MemoryStore {
	return &MemoryStore{
		lengths: make(map[string]uint32),
		max:     maxEntries,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(key []byte) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, false, ErrClosed
	}
	v, ok := m.lengths[string(key)]
	return int(v), ok, nil
}

// Put implements Store. A new key beyond the bound fails with
// ErrCapacityExceeded; improving an existing key always succeeds.
func (m *MemoryStore) Put(key []byte, length int) (bool, error) {
	n, err := checkLength(length)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}

	old, found := m.lengths[string(key)]
	if !found && m.max > 0 && uint64(len(m.lengths)) >= m.max {
		return false, fmt.Errorf("%w: %d entries", ErrCapacityExceeded, m.max)
	}
	if !m.record(old, found, n) {
		return false, nil
	}
	m.lengths[string(key)] = n
	return true, nil
}

// Len implements Store.
func (m *MemoryStore) Len() uint64 { return m.entries.Load() }

// Stats implements Store.
func (m *MemoryStore) Stats() Stats { return m.snapshot() }

// Meta implements Store.
func (m *MemoryStore) Meta() (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta, nil
}

// SetMeta implements Store.
func (m *MemoryStore) SetMeta(meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.meta = meta
	return nil
}

// Flush implements Store. Memory stores have nothing to flush.
func (m *MemoryStore) Flush() error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.lengths = nil
	return nil
}
