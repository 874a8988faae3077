package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	storefront "github.com/tiendio/storefront-go"
)

// ============================================================================
// Request Dispatcher
// ============================================================================

// Dispatcher wraps outbound HTTP calls to the storefront backend. It
// attaches the bearer credential from the configured TokenSource,
// applies a per-call deadline, honors caller-driven cancellation, and
// normalizes every failure into exactly one classification code
// (timeout, cancelled, unauthorized, server_rejected, server_error,
// network).
//
// The dispatcher never clears the session on unauthorized responses;
// it surfaces the classification and lets the caller decide.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	tokens     storefront.TokenSource
	timeout    time.Duration
	logger     zerolog.Logger
}

// Config configures the dispatcher.
type Config struct {
	// BaseURL is the backend API root, e.g. "http://localhost:3001/api"
	BaseURL string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// Tokens supplies the bearer credential (optional; may also be bound
	// later via SetTokenSource to break the session/transport cycle)
	Tokens storefront.TokenSource

	// Timeout is the per-call deadline applied when the caller's context
	// has none (optional, defaults to 60s to tolerate backend cold starts)
	Timeout time.Duration

	// Logger for request/failure events (optional, silent by default)
	Logger *zerolog.Logger
}

// DefaultTimeout tolerates cold-start latency of free-tier backends.
const DefaultTimeout = 60 * time.Second

// NewDispatcher creates a dispatcher from config. A nil config yields a
// dispatcher with defaults and no base URL.
func NewDispatcher(config *Config) *Dispatcher {
	if config == nil {
		config = &Config{}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Dispatcher{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     config.Tokens,
		timeout:    timeout,
		logger:     logger,
	}
}

// SetTokenSource binds the credential source after construction. The
// session store both owns the credential and performs calls through the
// dispatcher, so one of the two references has to be bound late.
func (d *Dispatcher) SetTokenSource(tokens storefront.TokenSource) {
	d.tokens = tokens
}

// Response is a normalized successful (2xx) backend response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Envelope parses the response body as the backend's
// {success, message, data} wrapper.
func (r *Response) Envelope() (*storefront.Envelope, error) {
	var envelope storefront.Envelope
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	return &envelope, nil
}

// DecodeData parses the envelope and unmarshals its data field into out.
func (r *Response) DecodeData(out interface{}) error {
	envelope, err := r.Envelope()
	if err != nil {
		return err
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("response envelope has no data")
	}
	return json.Unmarshal(envelope.Data, out)
}

// ============================================================================
// Dispatch
// ============================================================================

// Do performs one call against the backend. A non-nil body is JSON
// encoded. A caller deadline on ctx takes precedence over the default
// per-call timeout; cancelling ctx aborts the call.
//
// On any failure the returned error is a *storefront.Error carrying one
// classification code.
func (d *Dispatcher) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	url := d.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.tokens != nil {
		if token, ok := d.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		d.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("code", classified.Code).
			Dur("elapsed", time.Since(started)).
			Msg("dispatch failed")
		return nil, classified
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	d.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("dispatch")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Body: responseBody}, nil
	}
	return nil, classifyStatus(resp.StatusCode, responseBody)
}

// Get performs a GET request.
func (d *Dispatcher) Get(ctx context.Context, path string) (*Response, error) {
	return d.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (d *Dispatcher) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return d.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (d *Dispatcher) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return d.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (d *Dispatcher) Delete(ctx context.Context, path string) (*Response, error) {
	return d.Do(ctx, http.MethodDelete, path, nil)
}

// ============================================================================
// Failure Classification
// ============================================================================

// classifyTransportError maps errors where no response was received.
func classifyTransportError(err error) *storefront.Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return storefront.NewError(storefront.ErrCodeTimeout, "request deadline exceeded")
	case errors.Is(err, context.Canceled):
		return storefront.NewError(storefront.ErrCodeCancelled, "request cancelled")
	default:
		return &storefront.Error{
			Code:    storefront.ErrCodeNetwork,
			Message: "no response from server",
			Details: map[string]interface{}{"cause": err.Error()},
		}
	}
}

// classifyStatus maps non-2xx responses. The backend's envelope message,
// when present, becomes the error message so callers can surface the
// business reason.
func classifyStatus(status int, body []byte) *storefront.Error {
	message := envelopeMessage(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "credential rejected"
		}
		return &storefront.Error{
			Code:    storefront.ErrCodeUnauthorized,
			Message: message,
			Details: map[string]interface{}{"status": status},
		}
	case status >= 400 && status < 500:
		if message == "" {
			message = fmt.Sprintf("request rejected with status %d", status)
		}
		return &storefront.Error{
			Code:    storefront.ErrCodeServerRejected,
			Message: message,
			Details: map[string]interface{}{"status": status},
		}
	default:
		if message == "" {
			message = fmt.Sprintf("server error with status %d", status)
		}
		return &storefront.Error{
			Code:    storefront.ErrCodeServerError,
			Message: message,
			Details: map[string]interface{}{"status": status},
		}
	}
}

func envelopeMessage(body []byte) string {
	var envelope storefront.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Message
}
