// Package store persists diagram documents. A Backend moves opaque blobs by
// key; DiagramStore layers the document codec, optional snappy compression,
// logging and metrics on top.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound   = errors.New("diagram not found")
	ErrInvalidKey = errors.New("invalid store key")
)

// Backend stores blobs under flat keys.
type Backend interface {
	// Name labels the backend in logs and metrics.
	Name() string
	Put(ctx context.Context, key string, data []byte) error
	// Get returns ErrNotFound (possibly wrapped) for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	// List returns every key, sorted.
	List(ctx context.Context) ([]string, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,254}$`)

// ValidateKey rejects keys that could escape a directory or bucket prefix.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
