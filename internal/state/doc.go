// Package state provides PersistenceAdapter implementations for chat
// history: a JSON file store, a SQLite store and an in-memory store.
package state

import (
	"fmt"
	"path/filepath"

	"github.com/user/campuschat/internal/types"
)

// Compile-time interface compliance checks.
var _ types.HistoryStore = (*FileStore)(nil)
var _ types.HistoryStore = (*SQLiteStore)(nil)
var _ types.HistoryStore = (*MemoryStore)(nil)
var _ types.KeyLister = (*FileStore)(nil)
var _ types.KeyLister = (*SQLiteStore)(nil)
var _ types.KeyLister = (*MemoryStore)(nil)

// Open returns the history store for backend ("file", "sqlite" or
// "memory") rooted at dataDir. The returned close function releases any
// underlying resources.
func Open(backend, dataDir string) (types.HistoryStore, func() error, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dataDir), func() error { return nil }, nil
	case "sqlite":
		s, err := NewSQLiteStore(filepath.Join(dataDir, "history.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
