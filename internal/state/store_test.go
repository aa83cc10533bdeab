package state

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

func backends(t *testing.T) map[string]types.HistoryStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]types.HistoryStore{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func sampleMessages() []assistant.Message {
	return []assistant.Message{
		{Role: assistant.RoleModel, Content: "Welcome!", Metadata: map[string]any{"kind": "welcome"}},
		{Role: assistant.RoleUser, Content: "When is the library open?"},
		{
			Role:    assistant.RoleModel,
			Content: "8am to 10pm.",
			Sources: []assistant.Source{{Title: "Library hours", URL: "https://campus.example/library"}},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := types.IdentityKey("u1").HistoryKey()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Load(ctx, key); err != nil || ok {
				t.Fatalf("expected missing entry, got ok=%v err=%v", ok, err)
			}

			want := sampleMessages()
			if err := store.Save(ctx, key, want); err != nil {
				t.Fatal(err)
			}
			got, ok, err := store.Load(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatal("expected entry after save")
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("expected %+v, got %+v", want, got)
			}
		})
	}
}

func TestStoreOverwriteAndClear(t *testing.T) {
	ctx := context.Background()
	key := types.GuestIdentity.HistoryKey()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, key, sampleMessages()); err != nil {
				t.Fatal(err)
			}
			short := sampleMessages()[:1]
			if err := store.Save(ctx, key, short); err != nil {
				t.Fatal(err)
			}
			got, _, err := store.Load(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Errorf("expected overwrite to 1 message, got %d", len(got))
			}

			if err := store.Clear(ctx, key); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := store.Load(ctx, key); ok {
				t.Error("expected entry to be deleted")
			}
			if err := store.Clear(ctx, key); err != nil {
				t.Errorf("clearing a missing key should succeed, got %v", err)
			}
		})
	}
}

func TestStoreKeysIsolated(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := types.IdentityKey("alice").HistoryKey()
			b := types.IdentityKey("bob").HistoryKey()
			if err := store.Save(ctx, a, sampleMessages()); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := store.Load(ctx, b); ok {
				t.Error("expected bob to have no history")
			}
			if err := store.Clear(ctx, b); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := store.Load(ctx, a); !ok {
				t.Error("clearing bob must not touch alice")
			}
		})
	}
}

func TestFileStoreEscapesKeys(t *testing.T) {
	root := t.TempDir()
	store := NewFileStore(root)
	key := types.NewIdentityKey("telegram", "../../etc").HistoryKey()

	if err := store.Save(context.Background(), key, sampleMessages()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "history"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one history file, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(root, "history", entries[0].Name())); err != nil {
		t.Errorf("history file outside history dir: %v", err)
	}
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	key := types.IdentityKey("u1").HistoryKey()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Save(ctx, key, sampleMessages()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, ok, err := store.Load(ctx, key)
	if err != nil || !ok || len(got) != 3 {
		t.Errorf("expected intact history, got %d messages ok=%v err=%v", len(got), ok, err)
	}
}

func TestStoreKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			lister := store.(types.KeyLister)
			keys, err := lister.Keys(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(keys) != 0 {
				t.Fatalf("expected no keys in an empty store, got %v", keys)
			}

			a := types.IdentityKey("alice").HistoryKey()
			b := types.NewIdentityKey("telegram", "42").HistoryKey()
			for _, k := range []string{a, b} {
				if err := store.Save(ctx, k, sampleMessages()); err != nil {
					t.Fatal(err)
				}
			}
			if err := store.Clear(ctx, a); err != nil {
				t.Fatal(err)
			}

			keys, err = lister.Keys(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(keys, []string{b}) {
				t.Errorf("expected only %q after clearing alice, got %v", b, keys)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"", "file", "sqlite", "memory"} {
		store, closeFn, err := Open(backend, dir)
		if err != nil {
			t.Fatalf("%q: %v", backend, err)
		}
		if store == nil {
			t.Fatalf("%q: expected store", backend)
		}
		if err := closeFn(); err != nil {
			t.Errorf("%q: close: %v", backend, err)
		}
	}
	if _, _, err := Open("redis", dir); err == nil {
		t.Error("expected error for unknown backend")
	}
}
