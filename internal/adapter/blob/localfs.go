// Package blob stores raw resume bytes on the local filesystem. The external
// parser fetches documents by reference, so the store also knows the public
// base URL its keys are served under.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS implements domain.ContentStore on a directory.
type LocalFS struct {
	root    string
	baseURL string
}

// NewLocalFS creates the root directory if needed. baseURL is the public
// prefix under which stored keys are reachable.
func NewLocalFS(root, baseURL string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalFS{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Put persists content under key. Keys are write-once: a key that already
// exists is left untouched, since identical fingerprints imply identical
// bytes.
func (l *LocalFS) Put(_ context.Context, key string, content []byte) error {
	abs := filepath.Join(l.root, filepath.Clean(key))
	if _, err := os.Stat(abs); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, content, 0o644)
}

// URL returns the public reference for a stored key.
func (l *LocalFS) URL(key string) string {
	return fmt.Sprintf("%s/%s", l.baseURL, key)
}

// Open returns the stored bytes for a key.
func (l *LocalFS) Open(key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, filepath.Clean(key)))
}

// Exists reports whether a key is stored.
func (l *LocalFS) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(l.root, filepath.Clean(key)))
	return err == nil
}
