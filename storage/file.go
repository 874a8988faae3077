package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	storefront "github.com/tiendio/storefront-go"
)

// FileStorage is a durable backing store — the local-storage analog.
// Each key maps to one JSON file under the root directory; writes go
// through a temp file and rename so a crash mid-write never leaves a
// half-written snapshot behind.
type FileStorage struct {
	mu  sync.Mutex
	dir string
}

// NewFileStorage creates a durable store rooted at dir, creating the
// directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Get returns the stored value and whether the key was present.
func (s *FileStorage) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores the value under key, replacing any previous value.
func (s *FileStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Remove deletes the key. Removing an absent key is not an error.
func (s *FileStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// path maps a key to a filename. Keys containing characters unsafe for
// filenames are hex-encoded.
func (s *FileStorage) path(key string) string {
	safe := key
	if strings.ContainsAny(key, "/\\:*?\"<>| ") {
		safe = hex.EncodeToString([]byte(key))
	}
	return filepath.Join(s.dir, safe+".json")
}

// Ensure FileStorage implements Storage
var _ storefront.Storage = (*FileStorage)(nil)
