package blob

import (
	"context"
	"testing"
)

func TestLocalFS_PutOpenExists(t *testing.T) {
	store, err := NewLocalFS(t.TempDir(), "http://localhost:8080/blobs/")
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}
	ctx := context.Background()

	if store.Exists("ABC123.pdf") {
		t.Error("Exists() = true before Put")
	}

	content := []byte("%PDF-1.4 resume")
	if err := store.Put(ctx, "ABC123.pdf", content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if !store.Exists("ABC123.pdf") {
		t.Error("Exists() = false after Put")
	}

	got, err := store.Open("ABC123.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Open() = %q, want %q", got, content)
	}
}

func TestLocalFS_PutIsWriteOnce(t *testing.T) {
	store, err := NewLocalFS(t.TempDir(), "http://localhost:8080/blobs")
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "key.pdf", []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "key.pdf", []byte("second")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Open("key.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Open() = %q, want the original bytes kept", got)
	}
}

func TestLocalFS_URL(t *testing.T) {
	store, err := NewLocalFS(t.TempDir(), "http://localhost:8080/blobs/")
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}

	if got, want := store.URL("ABC123.pdf"), "http://localhost:8080/blobs/ABC123.pdf"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestLocalFS_OpenAbsent(t *testing.T) {
	store, err := NewLocalFS(t.TempDir(), "http://localhost:8080/blobs")
	if err != nil {
		t.Fatalf("NewLocalFS() error = %v", err)
	}

	if _, err := store.Open("nope.pdf"); err == nil {
		t.Error("Open() error = nil for absent key")
	}
}
