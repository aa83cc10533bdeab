package assistant

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultHTTPErrorMessage is shown when a non-2xx response carries no
	// server-provided error text.
	DefaultHTTPErrorMessage = "Failed to get AI response."

	// TransportErrorMessage is shown when the request never reached the server.
	TransportErrorMessage = "Sorry, I'm having trouble connecting right now. Please try again."

	// CancelledMessage replaces the placeholder when a request is aborted
	// before any content arrived.
	CancelledMessage = "Request cancelled."

	// EmptyResponseMessage replaces a completed reply that carried no text.
	EmptyResponseMessage = "No response received."
)

// TransportError wraps failures to reach the assistant endpoint at all
// (network down, DNS, connection refused) or to keep reading its body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// StreamError reports a failure in the middle of a stream, preserving the
// content accumulated before it.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// PartialContent returns the content accumulated before err, if any.
func PartialContent(err error) string {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Partial
	}
	return ""
}

// UserMessage maps an error to the text rendered in the model-authored
// error bubble.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return CancelledMessage
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return DefaultHTTPErrorMessage
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return TransportErrorMessage
	}
	return DefaultHTTPErrorMessage
}
