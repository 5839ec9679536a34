package watcher

import (
	"context"

	"github.com/mvp-joe/symmap/internal/cache"
)

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// MapCache is the part of the map cache the coordinator drives.
// *cache.Cache implements it.
type MapCache interface {
	Status(fileID string) cache.State
	Invalidate(fileID string) bool
}

// Resolver converts watched paths into cache file ids. *query.Loader
// implements it.
type Resolver interface {
	FileID(path string) (string, error)
}

// Filter reports whether a path should be watched. isDir is true for
// directories, which are skipped with their whole subtree when rejected.
type Filter func(path string, isDir bool) bool
