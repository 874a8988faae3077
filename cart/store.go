// Package cart owns the shopping-cart ledger. All operations are local
// and never fail; every mutation writes through to durable storage
// before returning, so a reload never loses a completed change.
//
// The cart is a single anonymous cart: it persists under one fixed key
// and survives login and logout untouched.
package cart

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tiendio/storefront-go/storage"

	storefront "github.com/tiendio/storefront-go"
)

// snapshotVersion is bumped when the persisted {items} projection
// changes shape.
const snapshotVersion = 1

// DefaultStorageKey is where the cart projection persists.
const DefaultStorageKey = "cart-storage"

// Config configures the cart store.
type Config struct {
	// Storage is the durable backing store (required)
	Storage storefront.Storage

	// StorageKey overrides the persistence key (optional)
	StorageKey string

	// Logger for persistence failures (optional, silent by default)
	Logger *zerolog.Logger
}

// Store is the cart store. Thread-safe; observer callbacks run
// synchronously after each mutation commits and persists.
type Store struct {
	mu      sync.Mutex
	items   []storefront.CartLine
	storage storefront.Storage
	key     string
	logger  zerolog.Logger
	subs    map[int]func(storefront.CartState)
	nextSub int
}

// cartSnapshot is the persisted projection. Totals and counts are
// derived on read, never stored.
type cartSnapshot struct {
	Items []storefront.CartLine `json:"items"`
}

// NewStore creates a cart store and rehydrates it from storage. A
// corrupted or version-mismatched snapshot yields an empty cart, never
// an error.
func NewStore(config *Config) *Store {
	if config == nil {
		config = &Config{}
	}

	key := config.StorageKey
	if key == "" {
		key = DefaultStorageKey
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Store{
		storage: config.Storage,
		key:     key,
		logger:  logger,
		subs:    make(map[int]func(storefront.CartState)),
	}

	if s.storage != nil {
		var snap cartSnapshot
		ok, err := storage.LoadSnapshot(s.storage, s.key, snapshotVersion, &snap)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cart rehydration failed")
		} else if ok {
			s.items = sanitizeLines(snap.Items)
		}
	}
	return s
}

// sanitizeLines drops lines a buggy or stale snapshot could carry:
// qty <= 0, empty ids, duplicate ids (first occurrence wins).
func sanitizeLines(lines []storefront.CartLine) []storefront.CartLine {
	seen := make(map[string]bool, len(lines))
	out := make([]storefront.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ID == "" || line.Qty <= 0 || seen[line.ID] {
			continue
		}
		seen[line.ID] = true
		out = append(out, line)
	}
	return out
}

// ============================================================================
// Mutations
// ============================================================================

// AddLine merges the product into the cart: an existing line's quantity
// grows by qty, otherwise a new line is appended. qty below 1 counts
// as 1.
func (s *Store) AddLine(p storefront.Product, qty int) {
	if p.ID == "" {
		return
	}
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == p.ID {
			s.items[i].Qty += qty
			s.commitLocked()
			return
		}
	}
	s.items = append(s.items, storefront.CartLine{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
		Image: p.Image,
		Qty:   qty,
	})
	s.commitLocked()
}

// IncrementLine raises the line's quantity by one. No-op if the id is
// absent.
func (s *Store) IncrementLine(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Qty++
			s.commitLocked()
			return
		}
	}
	s.mu.Unlock()
}

// DecrementLine lowers the line's quantity by one, removing the line
// entirely when it reaches zero. No-op if the id is absent.
func (s *Store) DecrementLine(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Qty--
			if s.items[i].Qty <= 0 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			}
			s.commitLocked()
			return
		}
	}
	s.mu.Unlock()
}

// RemoveLine deletes the line if present; no-op otherwise.
func (s *Store) RemoveLine(id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.commitLocked()
			return
		}
	}
	s.mu.Unlock()
}

// Clear empties the cart. Called by the checkout orchestrator only after
// the server confirmed the order, or by explicit user action.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.commitLocked()
}

// commitLocked persists the projection and notifies subscribers. It
// takes ownership of the held lock and releases it before callbacks run.
func (s *Store) commitLocked() {
	if s.storage != nil {
		if err := storage.SaveSnapshot(s.storage, s.key, snapshotVersion, cartSnapshot{Items: s.items}); err != nil {
			s.logger.Warn().Err(err).Msg("cart persistence failed")
		}
	}
	state := s.snapshotLocked()
	subs := make([]func(storefront.CartState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// ============================================================================
// Reads
// ============================================================================

// Snapshot returns a deep copy of the cart state. Mutating the snapshot
// never affects the store.
func (s *Store) Snapshot() storefront.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() storefront.CartState {
	return storefront.CartState{Items: s.items}.Clone()
}

// Total returns the derived cart total.
func (s *Store) Total() float64 {
	return s.Snapshot().Total()
}

// Count returns the derived item count.
func (s *Store) Count() int {
	return s.Snapshot().Count()
}

// Subscribe registers a callback notified synchronously after each
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(storefront.CartState)) func() {
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

// Ensure Store satisfies the orchestrator's seam
var _ storefront.Cart = (*Store)(nil)
