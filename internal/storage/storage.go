// Package storage defines the blob store contract the access service writes
// image bytes through. Keys are generated by the caller; the store attaches no
// meaning to them.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and reported by backends when no object
// exists under the requested key.
var ErrNotFound = errors.New("object not found")

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
