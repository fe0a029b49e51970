package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFsyncDir(t *testing.T) {
	if err := FsyncDir(t.TempDir()); err != nil {
		t.Errorf("FsyncDir: %v", err)
	}
}

func TestFsyncDir_NotExists(t *testing.T) {
	if err := FsyncDir("/nonexistent/dir"); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	data := []byte(`[100,0,{"0":{}},{},{},{}]`)

	if err := AtomicWriteFile(path, data); err != nil {
		t.Fatalf("AtomicWriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != FilePerm {
		t.Errorf("perm = %v, want %v", info.Mode().Perm(), FilePerm)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	if err := AtomicWriteFile(path, []byte("old")); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("new")); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestAtomicWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "model.json")
	if err := AtomicWriteFile(path, []byte("x")); err == nil {
		t.Error("expected error when the parent directory is missing")
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
	if err := EnsureDir(path); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}
