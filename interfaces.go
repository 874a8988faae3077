package storefront

import "context"

// Storage is an opaque key-value backing store. Implementations decide
// durability: process-scoped (session storage) or surviving restarts
// (local storage). Implementations must be safe for concurrent use.
type Storage interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)

	// Set stores the value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error
}

// TokenSource supplies the current bearer credential, if any. The
// session store is the canonical implementation.
type TokenSource interface {
	Token() (string, bool)
}

// OrderCreator is the slice of the backend the checkout orchestrator
// depends on. The submission carries the idempotency key the backend
// deduplicates by.
type OrderCreator interface {
	CreateOrder(ctx context.Context, sub OrderSubmission) (*OrderReceipt, error)
}

// Cart is what the checkout orchestrator needs from the cart store:
// a defensive snapshot before submitting and a clear after the server
// confirmed the order.
type Cart interface {
	Snapshot() CartState
	Clear()
}
