// Package theme holds the UI theme preference. Presentation applies it;
// this store only keeps and persists the choice.
package theme

import (
	"sync"

	"github.com/tiendio/storefront-go/storage"

	storefront "github.com/tiendio/storefront-go"
)

const snapshotVersion = 1

// DefaultStorageKey is where the theme preference persists.
const DefaultStorageKey = "theme-storage"

// Theme is a UI theme name.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Store is the theme store. Thread-safe.
type Store struct {
	mu      sync.Mutex
	theme   Theme
	storage storefront.Storage
	key     string
	subs    map[int]func(Theme)
	nextSub int
}

type themeSnapshot struct {
	Theme Theme `json:"theme"`
}

// NewStore creates a theme store rehydrated from durable storage,
// defaulting to light.
func NewStore(backing storefront.Storage) *Store {
	s := &Store{
		theme:   Light,
		storage: backing,
		key:     DefaultStorageKey,
		subs:    make(map[int]func(Theme)),
	}
	if backing != nil {
		var snap themeSnapshot
		if ok, err := storage.LoadSnapshot(backing, s.key, snapshotVersion, &snap); err == nil && ok {
			if snap.Theme == Dark {
				s.theme = Dark
			}
		}
	}
	return s
}

// Current returns the active theme.
func (s *Store) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme switches to t, persisting the choice. Unknown values fall
// back to light.
func (s *Store) SetTheme(t Theme) {
	if t != Dark {
		t = Light
	}

	s.mu.Lock()
	s.theme = t
	if s.storage != nil {
		// Theme loss on a failed write is cosmetic; nothing to surface
		_ = storage.SaveSnapshot(s.storage, s.key, snapshotVersion, themeSnapshot{Theme: t})
	}
	subs := make([]func(Theme), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
}

// Toggle flips between light and dark.
func (s *Store) Toggle() {
	if s.Current() == Dark {
		s.SetTheme(Light)
	} else {
		s.SetTheme(Dark)
	}
}

// Subscribe registers a callback notified synchronously after each
// change. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Theme)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
