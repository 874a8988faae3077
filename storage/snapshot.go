package storage

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	storefront "github.com/tiendio/storefront-go"
)

// Store projections are persisted inside a versioned envelope so schema
// changes can be migrated or discarded instead of crashing on load.
type snapshotEnvelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// envelopeSchema rejects corrupted or foreign payloads before any decode
// is attempted.
const envelopeSchema = `{
	"type": "object",
	"required": ["version", "state"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"state": {"type": "object"}
	}
}`

var compiledEnvelopeSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid snapshot envelope schema: %v", err))
	}
	return schema
}()

// SaveSnapshot serializes state into a versioned envelope and writes it
// under key.
func SaveSnapshot(s storefront.Storage, key string, version int, state interface{}) error {
	rawState, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot %q: %w", key, err)
	}
	data, err := json.Marshal(snapshotEnvelope{Version: version, State: rawState})
	if err != nil {
		return err
	}
	return s.Set(key, data)
}

// LoadSnapshot reads the envelope under key and decodes its state into
// out. Returns false when the key is absent, the payload fails schema
// validation, or the stored version differs from the expected one — all
// of which mean "start fresh", never "crash".
func LoadSnapshot(s storefront.Storage, key string, version int, out interface{}) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	result, err := compiledEnvelopeSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil || !result.Valid() {
		// Corrupted or foreign payload: discard
		return false, nil
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return false, nil
	}
	if envelope.Version != version {
		// Unknown schema version: discard rather than guess
		return false, nil
	}
	if err := json.Unmarshal(envelope.State, out); err != nil {
		return false, nil
	}
	return true, nil
}
