package assistant

import "context"

// Backend defines the interface for talking to the assistant endpoint.
// Implementations handle transport details such as authentication and
// response framing.
type Backend interface {
	// Chat sends a request and returns the finalized model message.
	// onDelta, when non-nil, is called with the accumulated content each
	// time a streamed delta arrives.
	Chat(ctx context.Context, req *ChatRequest, onDelta func(content string)) (*Message, error)
}
