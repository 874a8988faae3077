package storage

import (
	"sync"

	storefront "github.com/tiendio/storefront-go"
)

// MemoryStorage is an ephemeral, process-scoped backing store — the
// session-storage analog. State is lost when the process exits.
//
// Thread-safe with mutex protection.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty ephemeral store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Get returns the stored value and whether the key was present.
func (s *MemoryStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	// Copy so callers cannot mutate stored bytes
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores the value under key, replacing any previous value.
func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Remove deletes the key. Removing an absent key is not an error.
func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Ensure MemoryStorage implements Storage
var _ storefront.Storage = (*MemoryStorage)(nil)
