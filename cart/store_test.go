package cart

import (
	"testing"

	"github.com/tiendio/storefront-go/storage"

	storefront "github.com/tiendio/storefront-go"
)

func testProduct(id string, price float64) storefront.Product {
	return storefront.Product{ID: id, Title: "product " + id, Price: price, Image: "https://img/" + id}
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryStorage) {
	t.Helper()
	backing := storage.NewMemoryStorage()
	return NewStore(&Config{Storage: backing}), backing
}

func TestAddLineMergesQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	p := testProduct("a", 10)

	for i := 0; i < 5; i++ {
		s.AddLine(p, 1)
	}

	snap := s.Snapshot()
	if len(snap.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(snap.Items))
	}
	if snap.Items[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %d", snap.Items[0].Qty)
	}

	for i := 0; i < 5; i++ {
		s.DecrementLine("a")
	}
	if got := len(s.Snapshot().Items); got != 0 {
		t.Fatalf("expected empty cart after decrementing back down, got %d lines", got)
	}
}

func TestAddLineQuantityBelowOneCountsAsOne(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 0)
	s.AddLine(testProduct("a", 10), -3)

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Qty != 2 {
		t.Fatalf("expected one line with qty 2, got %+v", snap.Items)
	}
}

func TestNoZeroOrNegativeLines(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 1)

	// Decrement far past zero, then interleave
	for i := 0; i < 4; i++ {
		s.DecrementLine("a")
	}
	s.IncrementLine("a") // absent: no-op
	s.AddLine(testProduct("a", 10), 2)
	s.DecrementLine("a")

	for _, line := range s.Snapshot().Items {
		if line.Qty <= 0 {
			t.Fatalf("cart holds line with qty %d", line.Qty)
		}
	}
}

func TestDecrementAndRemoveAbsentAreNoOps(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 1)

	s.DecrementLine("missing")
	s.IncrementLine("missing")
	s.RemoveLine("missing")

	if got := len(s.Snapshot().Items); got != 1 {
		t.Fatalf("expected untouched cart, got %d lines", got)
	}
}

func TestRemoveLine(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 2)
	s.AddLine(testProduct("b", 5), 1)

	s.RemoveLine("a")

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "b" {
		t.Fatalf("expected only line b, got %+v", snap.Items)
	}
}

func TestTotalsScenario(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 2)
	s.AddLine(testProduct("b", 5), 1)

	if total := s.Total(); total != 25 {
		t.Fatalf("expected total 25, got %v", total)
	}
	if count := s.Count(); count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	s.DecrementLine("b")

	snap := s.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].ID != "a" || snap.Items[0].Qty != 2 {
		t.Fatalf("expected [{a qty:2}], got %+v", snap.Items)
	}
	if total := s.Total(); total != 20 {
		t.Fatalf("expected total 20 after decrement, got %v", total)
	}
}

func TestSnapshotDoesNotAliasStoreState(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddLine(testProduct("a", 10), 2)

	snap := s.Snapshot()
	snap.Items[0].Qty = 99
	snap.Items[0].ID = "tampered"

	after := s.Snapshot()
	if after.Items[0].Qty != 2 || after.Items[0].ID != "a" {
		t.Fatalf("mutating a snapshot leaked into the store: %+v", after.Items)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	backing := storage.NewMemoryStorage()
	first := NewStore(&Config{Storage: backing})
	first.AddLine(testProduct("a", 10), 2)
	first.AddLine(testProduct("b", 5), 1)
	first.AddLine(testProduct("c", 2.5), 4)

	// A reload must see identical lines, order and quantities preserved
	second := NewStore(&Config{Storage: backing})
	want := first.Snapshot()
	got := second.Snapshot()

	if len(got.Items) != len(want.Items) {
		t.Fatalf("expected %d lines after reload, got %d", len(want.Items), len(got.Items))
	}
	for i := range want.Items {
		if got.Items[i] != want.Items[i] {
			t.Fatalf("line %d differs after reload: want %+v, got %+v", i, want.Items[i], got.Items[i])
		}
	}
	if got.Total() != want.Total() || got.Count() != want.Count() {
		t.Fatalf("derived values drifted after reload")
	}
}

func TestEveryMutationPersistsBeforeReturning(t *testing.T) {
	backing := storage.NewMemoryStorage()
	s := NewStore(&Config{Storage: backing})

	s.AddLine(testProduct("a", 10), 1)
	if got := NewStore(&Config{Storage: backing}).Count(); got != 1 {
		t.Fatalf("add not persisted: count %d", got)
	}

	s.IncrementLine("a")
	if got := NewStore(&Config{Storage: backing}).Count(); got != 2 {
		t.Fatalf("increment not persisted: count %d", got)
	}

	s.Clear()
	if got := NewStore(&Config{Storage: backing}).Count(); got != 0 {
		t.Fatalf("clear not persisted: count %d", got)
	}
}

func TestCorruptSnapshotYieldsEmptyCart(t *testing.T) {
	backing := storage.NewMemoryStorage()
	if err := backing.Set(DefaultStorageKey, []byte(`{"definitely": "not a snapshot`)); err != nil {
		t.Fatal(err)
	}

	s := NewStore(&Config{Storage: backing})
	if got := len(s.Snapshot().Items); got != 0 {
		t.Fatalf("expected empty cart from corrupt snapshot, got %d lines", got)
	}
}

func TestRehydrationDropsInvalidLines(t *testing.T) {
	backing := storage.NewMemoryStorage()
	snap := cartSnapshot{Items: []storefront.CartLine{
		{ID: "a", Title: "a", Price: 10, Qty: 2},
		{ID: "a", Title: "dup", Price: 10, Qty: 7},
		{ID: "ghost", Qty: 0},
		{ID: "", Title: "no id", Qty: 3},
	}}
	if err := storage.SaveSnapshot(backing, DefaultStorageKey, snapshotVersion, snap); err != nil {
		t.Fatal(err)
	}

	s := NewStore(&Config{Storage: backing})
	items := s.Snapshot().Items
	if len(items) != 1 || items[0].ID != "a" || items[0].Qty != 2 {
		t.Fatalf("expected only the first valid line to survive, got %+v", items)
	}
}

func TestSubscribeNotifiedAfterMutation(t *testing.T) {
	s, _ := newTestStore(t)

	var seen []int
	unsubscribe := s.Subscribe(func(state storefront.CartState) {
		seen = append(seen, state.Count())
	})

	s.AddLine(testProduct("a", 10), 1)
	s.IncrementLine("a")
	unsubscribe()
	s.IncrementLine("a")

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("expected notifications [1 2], got %v", seen)
	}
}
