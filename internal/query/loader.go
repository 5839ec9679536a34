package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/symmap/internal/cache"
)

// Getter is the part of the cache a Loader feeds. *cache.Cache implements it.
type Getter interface {
	Get(ctx context.Context, fileID string, src []byte) (*cache.Snapshot, error)
}

// Loader reads files under a root directory into the cache, so that a
// following query finds their current map. File ids are slash-separated
// paths relative to the root.
type Loader struct {
	root  string
	cache Getter
}

// NewLoader creates a loader for files under root.
func NewLoader(root string, c Getter) (*Loader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	return &Loader{root: abs, cache: c}, nil
}

// Root returns the absolute root directory.
func (l *Loader) Root() string {
	return l.root
}

// FileID converts a path, absolute or relative to the root, into a file id.
// Paths outside the root are rejected.
func (l *Loader) FileID(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	rel, err := filepath.Rel(l.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, l.root)
	}
	return filepath.ToSlash(rel), nil
}

// Path returns the absolute path of a file id.
func (l *Loader) Path(fileID string) string {
	return filepath.Join(l.root, filepath.FromSlash(fileID))
}

// Load reads the file and brings its cache entry up to date, waiting for
// the build even when the cache first answers with a stale map.
func (l *Loader) Load(ctx context.Context, path string) (string, *cache.Snapshot, error) {
	fileID, err := l.FileID(path)
	if err != nil {
		return "", nil, err
	}
	src, err := os.ReadFile(l.Path(fileID))
	if err != nil {
		return fileID, nil, fmt.Errorf("failed to read %s: %w", fileID, err)
	}

	snap, err := l.cache.Get(ctx, fileID, src)
	if err != nil || !snap.Stale {
		return fileID, snap, err
	}
	snap, err = l.cache.Get(ctx, fileID, src)
	return fileID, snap, err
}
