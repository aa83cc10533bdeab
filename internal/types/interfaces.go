// internal/types/interfaces.go
package types

import (
	"context"

	"github.com/user/campuschat/pkg/assistant"
)

// HistoryStore persists one ordered message list per key.
type HistoryStore interface {
	// Load returns the stored messages and whether an entry exists.
	Load(ctx context.Context, key string) ([]assistant.Message, bool, error)
	Save(ctx context.Context, key string, messages []assistant.Message) error
	Clear(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	Keys(ctx context.Context) ([]string, error)
}
