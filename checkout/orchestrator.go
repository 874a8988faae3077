// Package checkout turns "cart contents + session credential" into a
// submitted order. It owns exactly one in-flight submission at a time,
// mints one idempotency key per user-initiated checkout, reuses that key
// across retries of the same attempt, and commits nothing locally until
// the server has confirmed the order.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	storefront "github.com/tiendio/storefront-go"
)

// State is the orchestrator's position in the checkout state machine.
// Terminal results return the machine to StateIdle once the caller has
// the outcome in hand.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// OutcomeStatus discriminates checkout results.
type OutcomeStatus string

const (
	// OutcomeSucceeded: the server confirmed the order and the cart was
	// cleared.
	OutcomeSucceeded OutcomeStatus = "succeeded"

	// OutcomeFailed: the attempt failed with a classified reason and the
	// cart is untouched.
	OutcomeFailed OutcomeStatus = "failed"

	// OutcomePossiblyDuplicate: the deadline expired with no response.
	// The server may have processed the order anyway, so nothing was
	// rolled back and nothing was cleared; Retry resubmits with the same
	// idempotency key so the backend can deduplicate.
	OutcomePossiblyDuplicate OutcomeStatus = "possibly_duplicate"
)

// Outcome is the discriminated result of one checkout attempt.
type Outcome struct {
	Status  OutcomeStatus
	Receipt *storefront.OrderReceipt
	Reason  *storefront.Error

	// Submission is the attempt still eligible for Retry. Set when the
	// failure classification allows resubmission with the same key.
	Submission *storefront.OrderSubmission
}

// Config configures the orchestrator.
type Config struct {
	// Cart supplies the snapshot and receives the post-confirmation
	// clear (required)
	Cart storefront.Cart

	// Tokens gates checkout on an authenticated session (required)
	Tokens storefront.TokenSource

	// Orders performs the order-creation call (required)
	Orders storefront.OrderCreator

	// Timeout bounds each submission attempt (optional, defaults to 60s)
	Timeout time.Duration

	// Logger for attempt lifecycle events (optional, silent by default)
	Logger *zerolog.Logger
}

// DefaultTimeout bounds one submission attempt.
const DefaultTimeout = 60 * time.Second

// Orchestrator is the checkout state machine.
type Orchestrator struct {
	mu      sync.Mutex
	state   State
	pending *storefront.OrderSubmission

	cart    storefront.Cart
	tokens  storefront.TokenSource
	orders  storefront.OrderCreator
	timeout time.Duration
	logger  zerolog.Logger
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(config *Config) *Orchestrator {
	if config == nil {
		config = &Config{}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Orchestrator{
		cart:    config.Cart,
		tokens:  config.Tokens,
		orders:  config.Orders,
		timeout: timeout,
		logger:  logger,
	}
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pending returns a copy of the submission eligible for Retry, or nil.
func (o *Orchestrator) Pending() *storefront.OrderSubmission {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return nil
	}
	sub := *o.pending
	sub.Lines = append([]storefront.OrderLine(nil), o.pending.Lines...)
	return &sub
}

// ============================================================================
// Checkout
// ============================================================================

// Checkout runs one user-initiated checkout attempt: validate, build a
// submission with a fresh idempotency key, submit. Line items are copied
// out of the snapshot, so cart edits during the network call cannot
// affect the in-flight submission.
//
// A second Checkout while one is submitting fails with
// checkout_in_progress rather than racing two submissions.
func (o *Orchestrator) Checkout(ctx context.Context) *Outcome {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return failed(storefront.NewError(storefront.ErrCodeAlreadyInProgress,
			"a checkout is already in progress"))
	}
	o.state = StateValidating

	snapshot := o.cart.Snapshot()
	if len(snapshot.Items) == 0 {
		o.state = StateIdle
		o.mu.Unlock()
		return failed(storefront.NewError(storefront.ErrCodeEmptyCart, "cart is empty"))
	}
	if _, ok := o.tokens.Token(); !ok {
		o.state = StateIdle
		o.mu.Unlock()
		return failed(storefront.NewError(storefront.ErrCodeNotAuthenticated,
			"login required before checkout"))
	}

	sub := &storefront.OrderSubmission{
		ClientRequestID: uuid.NewString(),
		Lines:           linesFromSnapshot(snapshot),
		Total:           snapshot.Total(),
		Attempt:         1,
		Deadline:        time.Now().Add(o.timeout),
	}
	o.pending = sub
	o.state = StateSubmitting
	o.mu.Unlock()

	o.logger.Info().
		Str("clientRequestId", sub.ClientRequestID).
		Int("lines", len(sub.Lines)).
		Float64("total", sub.Total).
		Msg("submitting order")
	return o.submit(ctx, sub)
}

// Retry resubmits the pending attempt with the same ClientRequestID so
// the backend can deduplicate. Only the caller triggers retries; the
// orchestrator never resubmits on its own.
func (o *Orchestrator) Retry(ctx context.Context) *Outcome {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return failed(storefront.NewError(storefront.ErrCodeAlreadyInProgress,
			"a checkout is already in progress"))
	}
	if o.pending == nil {
		o.mu.Unlock()
		return failed(storefront.NewError(storefront.ErrCodeNothingToRetry,
			"no checkout attempt to retry"))
	}

	sub := o.pending
	sub.Attempt++
	sub.Deadline = time.Now().Add(o.timeout)
	o.state = StateSubmitting
	o.mu.Unlock()

	o.logger.Info().
		Str("clientRequestId", sub.ClientRequestID).
		Int("attempt", sub.Attempt).
		Msg("retrying order submission")
	return o.submit(ctx, sub)
}

func linesFromSnapshot(snapshot storefront.CartState) []storefront.OrderLine {
	lines := make([]storefront.OrderLine, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, storefront.OrderLine{
			ID:        item.ID,
			Name:      item.Title,
			UnitPrice: item.Price,
			Quantity:  item.Qty,
		})
	}
	return lines
}

// submit performs the network call and resolves the outcome. The cart is
// cleared on confirmed success and on nothing else.
func (o *Orchestrator) submit(ctx context.Context, sub *storefront.OrderSubmission) *Outcome {
	callCtx, cancel := context.WithDeadline(ctx, sub.Deadline)
	defer cancel()

	receipt, err := o.orders.CreateOrder(callCtx, *sub)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle

	if err == nil {
		o.cart.Clear()
		o.pending = nil
		o.logger.Info().
			Str("clientRequestId", sub.ClientRequestID).
			Str("orderId", receipt.OrderID).
			Msg("order confirmed")
		return &Outcome{Status: OutcomeSucceeded, Receipt: receipt}
	}

	reason := asError(err)
	o.logger.Warn().
		Str("clientRequestId", sub.ClientRequestID).
		Str("code", reason.Code).
		Int("attempt", sub.Attempt).
		Msg("order submission failed")

	if reason.Code == storefront.ErrCodeTimeout {
		// The server may have processed the order even though the
		// response was lost. Surface the ambiguity; keep the submission
		// so a manual retry reuses the same key.
		return &Outcome{
			Status:     OutcomePossiblyDuplicate,
			Reason:     reason,
			Submission: o.pendingCopyLocked(),
		}
	}

	if reason.Code == storefront.ErrCodeUnauthorized {
		// The caller prompts re-authentication; the cart stays intact.
		// The credential is gone, so the attempt is not retryable as-is.
		o.pending = nil
		return failed(&storefront.Error{
			Code:    storefront.ErrCodeNotAuthenticated,
			Message: reason.Message,
			Details: reason.Details,
		})
	}

	if storefront.Retryable(err) {
		return &Outcome{
			Status:     OutcomeFailed,
			Reason:     reason,
			Submission: o.pendingCopyLocked(),
		}
	}

	// Business rejection: the same request would be rejected again, so a
	// fresh checkout with changed input is the only way forward.
	o.pending = nil
	return failed(reason)
}

func (o *Orchestrator) pendingCopyLocked() *storefront.OrderSubmission {
	if o.pending == nil {
		return nil
	}
	sub := *o.pending
	sub.Lines = append([]storefront.OrderLine(nil), o.pending.Lines...)
	return &sub
}

func failed(reason *storefront.Error) *Outcome {
	return &Outcome{Status: OutcomeFailed, Reason: reason}
}

func asError(err error) *storefront.Error {
	if se, ok := err.(*storefront.Error); ok {
		return se
	}
	return &storefront.Error{
		Code:    storefront.ErrCodeNetwork,
		Message: err.Error(),
	}
}
