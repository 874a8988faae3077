// Package storefront is the client-side state and transaction layer
// for a storefront backend: shared types, error classification, and
// the contracts its stores and orchestrator are built on.
//
// The subpackages compose into a full client:
//
//   - storage: durable key/value backends and versioned snapshots
//   - transport: the HTTP dispatcher with bearer injection and
//     failure classification
//   - api: the typed backend client (auth, catalog, orders, admin)
//   - session, cart, theme: observable persistent stores
//   - checkout: the submission state machine with idempotent retries
//
// See examples/storefront-flow for end-to-end wiring.
package storefront
