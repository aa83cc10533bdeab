// internal/state/file.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/campuschat/pkg/assistant"
)

// FileStore is a JSON-file-backed history store. Each key is stored as
// history/<escaped key>.json.
type FileStore struct {
	root  string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates a new file-backed FileStore rooted at the given directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

// getLock returns the per-key mutex, creating one if it doesn't exist.
func (f *FileStore) getLock(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lock, ok := f.locks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	f.locks[key] = lock
	return lock
}

func (f *FileStore) historyDir() string {
	return filepath.Join(f.root, "history")
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.historyDir(), url.PathEscape(key)+".json")
}

// Load reads the message list stored under key.
func (f *FileStore) Load(_ context.Context, key string) ([]assistant.Message, bool, error) {
	lock := f.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read history: %w", err)
	}

	var messages []assistant.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal history: %w", err)
	}
	return messages, true, nil
}

// Save replaces the message list stored under key.
func (f *FileStore) Save(_ context.Context, key string, messages []assistant.Message) error {
	lock := f.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	if messages == nil {
		messages = []assistant.Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if err := os.MkdirAll(f.historyDir(), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	path := f.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp history: %w", err)
	}
	return nil
}

// Clear deletes the entry for key. Clearing a missing key is not an error.
func (f *FileStore) Clear(_ context.Context, key string) error {
	lock := f.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove history: %w", err)
	}
	return nil
}

// Keys lists every stored history key, most recently updated first.
func (f *FileStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.historyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list history: %w", err)
	}

	type stored struct {
		key     string
		modTime time.Time
	}
	var found []stored
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		key, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, stored{key: key, modTime: info.ModTime()})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return found[i].key < found[j].key
	})

	keys := make([]string, len(found))
	for i, s := range found {
		keys[i] = s.key
	}
	return keys, nil
}
