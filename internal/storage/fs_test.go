package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestPutAndGet(t *testing.T) {
	s := tempStore(t)
	content := []byte("%PDF-1.7 fake")
	if err := s.Put("res-1", content); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("res-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNoBlob) {
		t.Errorf("err = %v, want ErrNoBlob", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("gone", []byte("bye"))
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, ErrNoBlob) {
		t.Errorf("err after delete = %v", err)
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	if err := s.Put("a", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != blobExt {
			t.Errorf("unexpected file in data dir: %s", e.Name())
		}
	}
}

func TestIDs(t *testing.T) {
	s := tempStore(t)
	_ = s.Put("a", []byte("1"))
	_ = s.Put("b", []byte("2"))
	ids, err := s.IDs()
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len = %d, want 2", len(ids))
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found["a"] || !found["b"] {
		t.Errorf("ids = %v", ids)
	}
}

func TestRejectsPathEscape(t *testing.T) {
	s := tempStore(t)
	if err := s.Put("../evil", []byte("x")); err == nil {
		t.Error("expected error for traversal id")
	}
	if _, err := s.Get("a/b"); err == nil {
		t.Error("expected error for nested id")
	}
}
