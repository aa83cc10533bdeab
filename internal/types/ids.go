// internal/types/ids.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// IdentityKey identifies whose conversation a session holds.
type IdentityKey string

type RequestID string

// GuestIdentity is the fixed key used when no user is authenticated.
const GuestIdentity IdentityKey = "guest"

const historyKeyPrefix = "chatHistory_"

func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

// NewIdentityKey derives an identity from the user's stable identifier,
// falling back to the guest key.
func NewIdentityKey(parts ...string) IdentityKey {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return GuestIdentity
	}
	return IdentityKey(strings.Join(kept, ":"))
}

// HistoryKey returns the persistence key for the identity's conversation.
func (k IdentityKey) HistoryKey() string {
	if k == "" {
		k = GuestIdentity
	}
	return historyKeyPrefix + string(k)
}
