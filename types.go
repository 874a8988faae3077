package storefront

import (
	"encoding/json"
	"time"
)

// CartLine is one product entry in the cart with a quantity.
// Invariant: a cart holds at most one line per product id, and a stored
// line always has Qty >= 1.
type CartLine struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
	Qty   int     `json:"qty"`
}

// CartState is an ordered snapshot of cart lines, insertion order
// preserved. Total and count are derived, never stored, so they cannot
// drift from the lines.
type CartState struct {
	Items []CartLine `json:"items"`
}

// Total returns the sum of price*qty over all lines.
func (s CartState) Total() float64 {
	var total float64
	for _, line := range s.Items {
		total += line.Price * float64(line.Qty)
	}
	return total
}

// Count returns the sum of quantities over all lines.
func (s CartState) Count() int {
	var count int
	for _, line := range s.Items {
		count += line.Qty
	}
	return count
}

// Clone returns a deep copy. Mutating the copy never affects the
// original.
func (s CartState) Clone() CartState {
	items := make([]CartLine, len(s.Items))
	copy(items, s.Items)
	return CartState{Items: items}
}

// UserProfile is the authenticated user's identity as returned by the
// backend.
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

// Session is the authenticated identity and credential held by the
// client. Invariant: Authenticated == (Token != ""), and User is present
// iff Authenticated.
type Session struct {
	User          *UserProfile `json:"user"`
	Token         string       `json:"token"`
	Authenticated bool         `json:"authenticated"`
}

// Credentials is the token+user pair issued by the login endpoint.
type Credentials struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// RegisterInput is the payload for account registration. Registration
// does not authenticate the caller; activation happens through an
// external email-verification flow.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Receipt acknowledges an accepted registration.
type Receipt struct {
	Message string `json:"message"`
}

// OrderLine is one line item of an order submission.
type OrderLine struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// OrderSubmission is the transient value owned by the checkout
// orchestrator for the duration of one checkout attempt.
// ClientRequestID is minted once per user-initiated checkout and reused
// across retries of that same attempt so the backend can deduplicate.
type OrderSubmission struct {
	ClientRequestID string      `json:"clientRequestId"`
	Lines           []OrderLine `json:"lines"`
	Total           float64     `json:"total"`
	Attempt         int         `json:"-"`
	Deadline        time.Time   `json:"-"`
}

// OrderReceipt confirms a created order.
type OrderReceipt struct {
	OrderID   string    `json:"orderId"`
	Message   string    `json:"message,omitempty"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order is one entry of the order history.
type Order struct {
	ID        string      `json:"id"`
	Lines     []OrderLine `json:"lines"`
	Total     float64     `json:"total"`
	Status    string      `json:"status,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Product is a catalog record, identifier already normalized (see
// ResolveProductID).
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}

// Envelope is the backend's uniform response wrapper:
// {success, message, data}.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
