package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	key, err := store.Write(context.Background(), "session-1", "stage-01-base.png", []byte("payload"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "session-1/stage-01-base.png" {
		t.Fatalf("key = %q", key)
	}
	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q, want payload", data)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, err := store.Write(context.Background(), "../escape", "x.png", []byte("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Write(context.Background(), "session", "../../x.png", []byte("x")); err == nil {
		t.Fatalf("expected traversal name to be rejected")
	}
}

func TestRemoveSessionDeletesDirectory(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, err := store.Write(context.Background(), "session-2", "a.png", []byte("a")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Write(context.Background(), "session-2", "b.png", []byte("b")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.RemoveSession("session-2"); err != nil {
		t.Fatalf("remove session: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "session-2")); !os.IsNotExist(err) {
		t.Fatalf("session directory should be gone, stat err = %v", err)
	}
}

func TestNewFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected error for empty base path")
	}
}
