package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	storefront "github.com/tiendio/storefront-go"
)

func TestMemoryStorageBasics(t *testing.T) {
	s := NewMemoryStorage()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set("k", []byte("v1")))
	value, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), value)

	require.NoError(t, s.Set("k", []byte("v2")))
	value, _, _ = s.Get("k")
	require.Equal(t, []byte("v2"), value)

	require.NoError(t, s.Remove("k"))
	_, ok, _ = s.Get("k")
	require.False(t, ok)

	// Removing an absent key is not an error
	require.NoError(t, s.Remove("k"))
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	s := NewMemoryStorage()
	original := []byte("value")
	require.NoError(t, s.Set("k", original))

	original[0] = 'X'
	stored, _, _ := s.Get("k")
	require.Equal(t, []byte("value"), stored)

	stored[0] = 'Y'
	again, _, _ := s.Get("k")
	require.Equal(t, []byte("value"), again)
}

func TestFileStorageSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("cart-storage", []byte(`{"items":[]}`)))

	second, err := NewFileStorage(dir)
	require.NoError(t, err)
	value, ok, err := second.Get("cart-storage")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"items":[]}`), value)
}

func TestFileStorageRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Remove("k"))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, s.Remove("k"))
}

func TestFileStorageUnsafeKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	key := "weird/key: with*chars?"
	require.NoError(t, s.Set(key, []byte("v")))

	value, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	// The file must land inside the root dir, not wherever the key points
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

type demoState struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, SaveSnapshot(s, "k", 1, demoState{Name: "cart", Count: 3}))

	var out demoState
	ok, err := LoadSnapshot(s, "k", 1, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, demoState{Name: "cart", Count: 3}, out)
}

func TestSnapshotAbsentKey(t *testing.T) {
	var out demoState
	ok, err := LoadSnapshot(NewMemoryStorage(), "missing", 1, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshotVersionMismatchDiscarded(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, SaveSnapshot(s, "k", 1, demoState{Name: "old"}))

	var out demoState
	ok, err := LoadSnapshot(s, "k", 2, &out)
	require.NoError(t, err)
	require.False(t, ok, "a version-mismatched snapshot must be discarded, not decoded")
}

func TestSnapshotRejectsForeignPayloads(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"truncated json", `{"version":1,"state":{"na`},
		{"not an envelope", `{"items":[{"id":"a"}]}`},
		{"state not an object", `{"version":1,"state":"oops"}`},
		{"version not an integer", `{"version":"one","state":{}}`},
		{"plain text", `hello`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStorage()
			require.NoError(t, s.Set("k", []byte(tt.data)))

			var out demoState
			ok, err := LoadSnapshot(s, "k", 1, &out)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestSnapshotOverFileStorage(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, SaveSnapshot(first, "theme-storage", 1, demoState{Name: "dark"}))

	second, err := NewFileStorage(dir)
	require.NoError(t, err)
	var out demoState
	ok, err := LoadSnapshot(second, "theme-storage", 1, &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", out.Name)
}

// Both implementations satisfy the backing-store contract
var _ storefront.Storage = (*MemoryStorage)(nil)
var _ storefront.Storage = (*FileStorage)(nil)
