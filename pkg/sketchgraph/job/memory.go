package job

import "sync"

// MemoryStore is an in-memory job store. Status is lost when the
// process exits, which matches the current-value-only contract.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryStore creates an in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrStoreClosed
	}
	status, ok := m.data[id]
	return status, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.data[id] = status
	return nil
}

// CompareAndSet implements Store.
func (m *MemoryStore) CompareAndSet(id, next string, allow func(current string, exists bool) bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", false, ErrStoreClosed
	}

	current, exists := m.data[id]
	if !allow(current, exists) {
		return current, false, nil
	}
	m.data[id] = next
	return current, true, nil
}

// Len returns the number of tracked jobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
