package storefront

import (
	"encoding/json"
	"strconv"
)

// Backend records are inconsistent about identifier field naming: product
// and order-line records may carry "id", "productId" or "_id" depending on
// which route produced them. Normalization happens once, at the boundary,
// in this resolution order.
var identifierFields = []string{"id", "productId", "_id"}

// ResolveID returns the canonical identifier of a raw backend record,
// resolving id -> productId -> _id. Returns "" when none is present.
func ResolveID(record map[string]json.RawMessage) string {
	for _, field := range identifierFields {
		raw, ok := record[field]
		if !ok {
			continue
		}
		if id := decodeIdentifier(raw); id != "" {
			return id
		}
	}
	return ""
}

// decodeIdentifier accepts string and numeric identifiers.
func decodeIdentifier(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// DecodeProduct decodes a raw catalog record, normalizing its identifier.
func DecodeProduct(raw json.RawMessage) (Product, error) {
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, err
	}
	record := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return Product{}, err
	}
	p.ID = ResolveID(record)
	return p, nil
}

// DecodeOrder decodes a raw order-history record, normalizing the order
// identifier and every line identifier.
func DecodeOrder(raw json.RawMessage) (Order, error) {
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, err
	}
	record := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return Order{}, err
	}
	o.ID = ResolveID(record)

	var lines []json.RawMessage
	if rawLines, ok := record["lines"]; ok {
		if err := json.Unmarshal(rawLines, &lines); err == nil {
			for i, rawLine := range lines {
				if i >= len(o.Lines) {
					break
				}
				lineRecord := map[string]json.RawMessage{}
				if err := json.Unmarshal(rawLine, &lineRecord); err == nil {
					o.Lines[i].ID = ResolveID(lineRecord)
				}
			}
		}
	}
	return o, nil
}
