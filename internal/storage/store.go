// Package storage persists ready FileMaps so a new process can skip
// rebuilding files whose content has not changed. Records are keyed by
// path and carry the content fingerprint they were built from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// ErrNotFound is returned when no map is stored for a path and fingerprint.
var ErrNotFound = errors.New("map not found in store")

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendBolt   = "bbolt"
)

// Store is a persistent map store.
type Store interface {
	// Get returns the map stored for path if it was built from content
	// with the given fingerprint.
	Get(ctx context.Context, path, fingerprint string) (*symbols.FileMap, error)
	// Put stores m, replacing any map stored for the same path.
	Put(ctx context.Context, m *symbols.FileMap) error
	// Delete removes the map stored for path. Missing paths are not an error.
	Delete(ctx context.Context, path string) error
	// Paths lists every stored path in sorted order.
	Paths(ctx context.Context) ([]string, error)
	Close() error
}

// Open opens the store for backend at path, creating parent directories.
// BackendNone and the empty string return a nil Store.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendNone:
		return nil, nil
	case BackendSQLite, BackendBolt:
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if backend == BackendSQLite {
		return OpenSQLite(path)
	}
	return OpenBolt(path)
}
