package gateway

import (
	"time"

	"github.com/user/campuschat/internal/types"
)

// State is the Request Coordinator's position in its state machine.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateErrored   State = "errored"
)

// Run tracks a single chat request against a session.
type Run struct {
	ID        types.RequestID
	Identity  types.IdentityKey
	Text      string
	State     State
	CreatedAt time.Time
	EndedAt   *time.Time
	Error     error
}

// NewRun creates a Run in the Sending state for the given identity.
func NewRun(identity types.IdentityKey, text string) *Run {
	return &Run{
		ID:        types.NewRequestID(),
		Identity:  identity,
		Text:      text,
		State:     StateSending,
		CreatedAt: time.Now(),
	}
}

func (r *Run) finish(err error) {
	now := time.Now()
	r.EndedAt = &now
	r.Error = err
}
