package storefront

import (
	"encoding/json"
	"testing"
)

func record(t *testing.T, raw string) map[string]json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestResolveIDOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"id wins over everything", `{"id":"a","productId":"b","_id":"c"}`, "a"},
		{"productId wins over _id", `{"productId":"b","_id":"c"}`, "b"},
		{"_id as fallback", `{"_id":"c"}`, "c"},
		{"numeric id", `{"id":42}`, "42"},
		{"empty id falls through", `{"id":"","_id":"c"}`, "c"},
		{"nothing resolvable", `{"title":"x"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveID(record(t, tt.raw)); got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeProductNormalizesID(t *testing.T) {
	raw := json.RawMessage(`{"_id":"p-7","title":"Lamp","price":19.5,"image":"https://img/lamp"}`)

	p, err := DecodeProduct(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "p-7" {
		t.Fatalf("expected normalized id p-7, got %q", p.ID)
	}
	if p.Title != "Lamp" || p.Price != 19.5 {
		t.Fatalf("fields lost in decode: %+v", p)
	}
}

func TestDecodeOrderNormalizesLineIDs(t *testing.T) {
	raw := json.RawMessage(`{
		"_id": "o-1",
		"total": 25,
		"lines": [
			{"productId": "a", "name": "alpha", "unitPrice": 10, "quantity": 2},
			{"_id": "b", "name": "beta", "unitPrice": 5, "quantity": 1}
		]
	}`)

	o, err := DecodeOrder(raw)
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "o-1" {
		t.Fatalf("expected order id o-1, got %q", o.ID)
	}
	if len(o.Lines) != 2 || o.Lines[0].ID != "a" || o.Lines[1].ID != "b" {
		t.Fatalf("line ids not normalized: %+v", o.Lines)
	}
}

func TestCartStateDerivedValues(t *testing.T) {
	state := CartState{Items: []CartLine{
		{ID: "a", Price: 10, Qty: 2},
		{ID: "b", Price: 5, Qty: 1},
	}}

	if state.Total() != 25 {
		t.Fatalf("expected total 25, got %v", state.Total())
	}
	if state.Count() != 3 {
		t.Fatalf("expected count 3, got %d", state.Count())
	}

	clone := state.Clone()
	clone.Items[0].Qty = 99
	if state.Items[0].Qty != 2 {
		t.Fatal("Clone aliases the original lines")
	}
}
