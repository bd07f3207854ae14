package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"image-service/internal/storage"
)

// Store keeps image blobs as flat files under a root directory, one file per
// key. Good enough for single-node deployments and tests; Minio covers the
// rest.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{root: root}, nil
}

// path maps a key to a file inside the root. Keys are generated uuid-prefixed
// names, but Base strips any separators so a malformed key cannot escape root.
func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.Base(key))
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}
