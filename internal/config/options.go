package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/logging"
	"github.com/mvp-joe/symmap/internal/storage"
)

// MapperOptions converts the mapping section into indexer.Mapper options.
func (c *Config) MapperOptions() []indexer.MapperOption {
	return []indexer.MapperOption{
		indexer.WithMaxFileSize(c.Mapping.MaxFileSize),
	}
}

// CacheOptions converts the cache section into cache.Options. The store is
// left for the caller to open with OpenStore.
func (c *Config) CacheOptions() cache.Options {
	opts := cache.DefaultOptions()
	opts.Eviction = cache.EvictionPolicy{
		MaxEntries: c.Cache.MaxEntries,
		MaxSymbols: c.Cache.MaxSymbols,
	}
	opts.MaxConcurrentBuilds = c.Cache.MaxConcurrentBuilds
	opts.RetainedTreeBytes = c.Cache.RetainedTreeBytes
	return opts
}

// BatchOptions converts the mapping section into indexer.BatchOptions for
// files under rootDir.
func (c *Config) BatchOptions(rootDir string) indexer.BatchOptions {
	return indexer.BatchOptions{
		Workers: c.Mapping.Workers,
		Root:    rootDir,
	}
}

// Discovery creates a file discovery over rootDir with the paths section.
func (c *Config) Discovery(rootDir string, supports func(path string) bool) (*indexer.FileDiscovery, error) {
	return indexer.NewFileDiscovery(rootDir, c.Paths.Include, c.Paths.Ignore, supports)
}

// StoragePath resolves the storage path against rootDir.
func (c *Config) StoragePath(rootDir string) string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(rootDir, c.Storage.Path)
}

// OpenStore opens the configured warm-start store. It returns a nil store
// when storage is disabled.
func (c *Config) OpenStore(rootDir string) (storage.Store, error) {
	backend := strings.ToLower(c.Storage.Backend)
	s, err := storage.Open(backend, c.StoragePath(rootDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", backend, err)
	}
	return s, nil
}

// LogOptions converts the log section into logging.Options. verbose forces
// debug output.
func (c *Config) LogOptions(verbose bool) logging.Options {
	level, _ := logging.ParseLevel(c.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return logging.Options{Level: level}
}
