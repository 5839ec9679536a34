package watcher

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/mvp-joe/symmap/internal/cache"
)

// WatchCoordinator routes file changes to the map cache. A changed file's
// entry is invalidated so the next query builds from the new content;
// files the cache never saw are ignored.
type WatchCoordinator struct {
	files    FileWatcher
	cache    MapCache
	resolver Resolver
	onChange func(fileIDs []string)
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, c MapCache, resolver Resolver) *WatchCoordinator {
	return &WatchCoordinator{
		files:    files,
		cache:    c,
		resolver: resolver,
	}
}

// OnInvalidate registers a function called with the file ids each batch of
// changes invalidated.
func (c *WatchCoordinator) OnInvalidate(fn func(fileIDs []string)) {
	c.onChange = fn
}

// Start begins routing events and blocks until ctx is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, func(files []string) {
		c.handleFileChange(ctx, files)
	}); err != nil {
		c.cleanup(ctx)
		return err
	}

	<-ctx.Done()
	c.cleanup(ctx)
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup(ctx context.Context) {
	if err := c.files.Stop(); err != nil {
		slogctx.FromCtx(ctx).Warn("file watcher stop failed", "error", err)
	}
}

// handleFileChange invalidates the cached maps of changed files.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 {
		return
	}
	log := slogctx.FromCtx(ctx)

	var invalidated []string
	for _, path := range files {
		fileID, err := c.resolver.FileID(path)
		if err != nil {
			log.Debug("ignoring change outside root", "path", path)
			continue
		}
		if c.cache.Status(fileID) == cache.Absent {
			continue
		}
		if c.cache.Invalidate(fileID) {
			invalidated = append(invalidated, fileID)
		}
	}

	if len(invalidated) == 0 {
		return
	}
	log.Info("invalidated changed files", "count", len(invalidated), "files", invalidated)
	if c.onChange != nil {
		c.onChange(invalidated)
	}
}
