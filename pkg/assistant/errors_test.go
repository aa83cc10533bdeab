package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"http with message", &HTTPError{StatusCode: 500, Message: "overloaded"}, "overloaded"},
		{"http without message", &HTTPError{StatusCode: 500}, DefaultHTTPErrorMessage},
		{"transport", &TransportError{Err: errors.New("dial tcp: connection refused")}, TransportErrorMessage},
		{"wrapped transport", fmt.Errorf("chat: %w", &TransportError{Err: errors.New("no such host")}), TransportErrorMessage},
		{"cancelled", &StreamError{Err: context.Canceled}, CancelledMessage},
		{"cancelled transport", &TransportError{Err: context.Canceled}, CancelledMessage},
		{"unknown", errors.New("decode response: unexpected EOF"), DefaultHTTPErrorMessage},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestPartialContent(t *testing.T) {
	err := fmt.Errorf("chat: %w", &StreamError{Partial: "so far", Err: errors.New("reset")})
	if got := PartialContent(err); got != "so far" {
		t.Errorf("expected 'so far', got %q", got)
	}
	if got := PartialContent(errors.New("other")); got != "" {
		t.Errorf("expected empty partial, got %q", got)
	}
}
