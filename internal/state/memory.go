package state

import (
	"context"
	"slices"
	"sync"

	"github.com/user/campuschat/pkg/assistant"
)

// MemoryStore keeps histories in process memory. Used for ephemeral
// sessions and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]assistant.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]assistant.Message)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]assistant.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(msgs), true, nil
}

func (m *MemoryStore) Save(_ context.Context, key string, messages []assistant.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = slices.Clone(messages)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys lists every stored history key, sorted.
func (m *MemoryStore) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
