// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// KV CONTRACT TESTS
// =============================================================================

func mustOpenKV(t *testing.T, backend, dir string) KV {
	t.Helper()
	kv, err := openKV(backend, dir)
	if err != nil {
		t.Fatalf("openKV(%s): %v", backend, err)
	}
	return kv
}

func TestKV_Backends(t *testing.T) {
	backends := []string{BackendFile, BackendBolt, BackendSQLite, BackendMemory}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			kv := mustOpenKV(t, backend, t.TempDir())
			defer kv.Close()

			if _, ok, err := kv.Get(KeyCurrentID); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v, want ok=false", ok, err)
			}

			if err := kv.Set(KeyCurrentID, "abc"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if v, ok, err := kv.Get(KeyCurrentID); err != nil || !ok || v != "abc" {
				t.Errorf("Get = %q ok=%v err=%v, want abc", v, ok, err)
			}

			if err := kv.Set(KeyCurrentID, "def"); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			if v, _, _ := kv.Get(KeyCurrentID); v != "def" {
				t.Errorf("Get after overwrite = %q, want def", v)
			}

			if err := kv.Delete(KeyCurrentID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := kv.Get(KeyCurrentID); ok {
				t.Error("key still present after Delete")
			}

			// Deleting again is fine.
			if err := kv.Delete(KeyCurrentID); err != nil {
				t.Errorf("second Delete failed: %v", err)
			}
		})
	}
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendBolt, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			kv := mustOpenKV(t, backend, dir)
			if err := kv.Set(KeyTheme, "light"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := kv.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			kv = mustOpenKV(t, backend, dir)
			defer kv.Close()
			if v, ok, err := kv.Get(KeyTheme); err != nil || !ok || v != "light" {
				t.Errorf("Get after reopen = %q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestOpenKV_UnknownBackend(t *testing.T) {
	if _, err := openKV("redis", t.TempDir()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}

func TestFileKV_RejectsPathKeys(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	for _, key := range []string{"../escape", "a/b"} {
		if err := kv.Set(key, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestFileKV_ConversationsFileIsJSON(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	if err := kv.Set(KeyConversations, "[]"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "chat_conversations.json")); err != nil {
		t.Errorf("conversations file missing: %v", err)
	}
}

// =============================================================================
// ADAPTER TESTS
// =============================================================================

func TestAdapter_SaveAndLoadRaw(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)

	conv := model.NewConversation("c1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := a.Save([]*model.Conversation{conv}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, ok := a.LoadRaw()
	if !ok {
		t.Fatal("LoadRaw reported nothing stored")
	}

	var decoded []*model.Conversation
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatalf("stored collection is not JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "c1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestAdapter_SaveNilWritesEmptyArray(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)
	if err := a.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if raw, ok := a.LoadRaw(); !ok || raw != "[]" {
		t.Errorf("LoadRaw = %q ok=%v, want []", raw, ok)
	}
}

func TestAdapter_KeysFailIndependently(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, nil)
	kv.FailWrites(true, KeyConversations)

	err := a.Save([]*model.Conversation{model.NewConversation("c1", time.Now())})
	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *PersistError", err)
	}
	if perr.Key != KeyConversations {
		t.Errorf("PersistError.Key = %q", perr.Key)
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("err = %v, want ErrQuotaExceeded", err)
	}

	// The pointer and view flags still persist.
	if err := a.SaveCurrentID("c1"); err != nil {
		t.Fatalf("SaveCurrentID failed: %v", err)
	}
	if err := a.SaveFlag(KeySidebarCollapsed, true); err != nil {
		t.Fatalf("SaveFlag failed: %v", err)
	}

	if id, ok := a.LoadCurrentID(); !ok || id != "c1" {
		t.Errorf("LoadCurrentID = %q ok=%v", id, ok)
	}
	if !a.LoadFlag(KeySidebarCollapsed) {
		t.Error("sidebar flag not persisted")
	}
	if _, ok := a.LoadRaw(); ok {
		t.Error("collection was never written but LoadRaw found one")
	}
}

func TestAdapter_CurrentIDClear(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)
	if err := a.SaveCurrentID("c1"); err != nil {
		t.Fatalf("SaveCurrentID failed: %v", err)
	}
	if err := a.SaveCurrentID(""); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if id, ok := a.LoadCurrentID(); ok {
		t.Errorf("LoadCurrentID = %q after clear", id)
	}
}

func TestAdapter_LoadFlagDefaults(t *testing.T) {
	kv := NewMemoryKV()
	a := NewAdapter(kv, nil)
	if a.LoadFlag(KeySidebarCollapsed) {
		t.Error("missing flag should be false")
	}

	if err := kv.Set(KeySidebarCollapsed, "garbage"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if a.LoadFlag(KeySidebarCollapsed) {
		t.Error("unparseable flag should be false")
	}
}

func TestAdapter_Changed(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)
	if !a.Changed([]byte("[]")) {
		t.Error("nothing seen yet, Changed should be true")
	}

	if err := a.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if a.Changed([]byte("[]")) {
		t.Error("own write reported as changed")
	}
	if !a.Changed([]byte(`[{"id":"x"}]`)) {
		t.Error("different content not reported as changed")
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestAdapter_WatchUnsupported(t *testing.T) {
	a := NewAdapter(NewMemoryKV(), nil)
	if err := a.Watch(context.Background(), 0, func() {}); !errors.Is(err, ErrWatchUnsupported) {
		t.Errorf("err = %v, want ErrWatchUnsupported", err)
	}
}

func TestAdapter_WatchExternalWrite(t *testing.T) {
	dir := t.TempDir()
	ours, err := Open(Options{Backend: BackendFile, Dir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	theirs, err := Open(Options{Backend: BackendFile, Dir: dir})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	if err := ours.Watch(ctx, 20*time.Millisecond, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// Our own write must not trigger a reload.
	if err := ours.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	select {
	case <-changed:
		t.Fatal("own write triggered onChange")
	case <-time.After(300 * time.Millisecond):
	}

	if err := theirs.Save([]*model.Conversation{model.NewConversation("ext", time.Now())}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("external write not observed")
	}
}
