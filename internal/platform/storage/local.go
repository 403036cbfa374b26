package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a root directory; used in development.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("storage/local: getwd: %w", err)
		}
		root = filepath.Join(cwd, root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage/local: mkdir: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put copies body into root/key.
func (s *LocalStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error) {
	if !validKey(key) {
		return Object{}, ErrInvalidKey
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage/local: mkdir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return Object{}, fmt.Errorf("storage/local: create %s: %w", key, err)
	}
	defer f.Close()
	written, err := io.Copy(f, body)
	if err != nil {
		return Object{}, fmt.Errorf("storage/local: write %s: %w", key, err)
	}
	return Object{Key: key, URL: s.URL(key), ContentType: contentType, Size: written}, nil
}

// URL returns the address under which Handler serves key.
func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Handler serves stored files; mount it with the base URL prefix stripped.
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}
