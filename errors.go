package storefront

import (
	"errors"
	"fmt"
)

// Error is the uniform error shape surfaced by the storefront core.
// Code carries the failure classification; callers decide the message
// shown to the user.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Transport failure classifications. Every failed dispatch resolves to
// exactly one of these.
const (
	ErrCodeTimeout        = "timeout"
	ErrCodeCancelled      = "cancelled"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeServerRejected = "server_rejected"
	ErrCodeServerError    = "server_error"
	ErrCodeNetwork        = "network"
)

// Auth and input classifications
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailNotVerified   = "email_not_verified"
	ErrCodeValidation         = "validation_failed"
)

// Checkout classifications
const (
	ErrCodeEmptyCart         = "empty_cart"
	ErrCodeNotAuthenticated  = "not_authenticated"
	ErrCodeAlreadyInProgress = "checkout_in_progress"
	ErrCodeNothingToRetry    = "nothing_to_retry"
)

// NewError creates a classified error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError creates a field-level validation error. The fields
// map travels in Details under the "fields" key so callers can re-prompt
// per field.
func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: message,
		Details: map[string]interface{}{"fields": fields},
	}
}

// CodeOf returns the classification code carried by err, or the empty
// string if err is nil or unclassified.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given classification code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// Retryable reports whether a failed submission may be retried with the
// same idempotency key. Business rejections (4xx) and validation failures
// require changed input and therefore a fresh request.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeCancelled, ErrCodeNetwork, ErrCodeServerError:
		return true
	}
	return false
}
