package theme

import (
	"testing"

	"github.com/tiendio/storefront-go/storage"
)

func TestDefaultIsLight(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage())
	if s.Current() != Light {
		t.Fatalf("expected light default, got %s", s.Current())
	}
}

func TestToggleAndPersist(t *testing.T) {
	backing := storage.NewMemoryStorage()
	s := NewStore(backing)

	s.Toggle()
	if s.Current() != Dark {
		t.Fatalf("expected dark after toggle, got %s", s.Current())
	}

	if reloaded := NewStore(backing); reloaded.Current() != Dark {
		t.Fatalf("theme did not survive reload, got %s", reloaded.Current())
	}

	s.Toggle()
	if s.Current() != Light {
		t.Fatalf("expected light after second toggle, got %s", s.Current())
	}
}

func TestUnknownThemeFallsBackToLight(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage())
	s.SetTheme(Theme("sepia"))
	if s.Current() != Light {
		t.Fatalf("expected light for unknown theme, got %s", s.Current())
	}
}

func TestSubscribe(t *testing.T) {
	s := NewStore(storage.NewMemoryStorage())

	var seen []Theme
	unsubscribe := s.Subscribe(func(th Theme) { seen = append(seen, th) })
	s.SetTheme(Dark)
	unsubscribe()
	s.SetTheme(Light)

	if len(seen) != 1 || seen[0] != Dark {
		t.Fatalf("expected [dark], got %v", seen)
	}
}
