package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/storage"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() reads .symmap/config.yml and .symmap/config.yaml
// - A partial config file merges with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML and for invalid values
// - An explicit config file must exist
// - Validate() rejects negative limits, bad globs, unknown backends and levels
// - Validate() reports every problem at once
// - Conversions produce cache, batch, store and log options

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, Dir)
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 1024, cfg.Cache.MaxEntries)
	assert.Equal(t, 1_000_000, cfg.Cache.MaxSymbols)
	assert.Equal(t, 0, cfg.Cache.MaxConcurrentBuilds)
	assert.Equal(t, 64<<20, cfg.Cache.RetainedTreeBytes)

	assert.Contains(t, cfg.Paths.Include, "**/*.java")
	assert.Contains(t, cfg.Paths.Include, "**/*.go")
	assert.Contains(t, cfg.Paths.Ignore, ".symmap/**")

	assert.Equal(t, 1<<20, cfg.Mapping.MaxFileSize)
	assert.False(t, cfg.Mapping.IncludeLocal)

	assert.Equal(t, storage.BackendNone, cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
cache:
  max_entries: 10
  max_symbols: 500
  max_concurrent_builds: 2
  retained_tree_bytes: 0

paths:
  include:
    - "src/**/*.java"
  ignore:
    - "src/gen/**"

mapping:
  max_file_size: 4096
  workers: 3
  include_local: true

storage:
  backend: sqlite
  path: maps.sqlite

log:
  level: debug
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, CacheConfig{MaxEntries: 10, MaxSymbols: 500, MaxConcurrentBuilds: 2, RetainedTreeBytes: 0}, cfg.Cache)
	assert.Equal(t, []string{"src/**/*.java"}, cfg.Paths.Include)
	assert.Equal(t, []string{"src/gen/**"}, cfg.Paths.Ignore)
	assert.Equal(t, MappingConfig{MaxFileSize: 4096, Workers: 3, IncludeLocal: true}, cfg.Mapping)
	assert.Equal(t, StorageConfig{Backend: "sqlite", Path: "maps.sqlite"}, cfg.Storage)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
storage:
  backend: bbolt
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, storage.BackendBolt, cfg.Storage.Backend)
}

func TestLoad_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
mapping:
  workers: 7
`)

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)

	// Test: overridden value
	assert.Equal(t, 7, cfg.Mapping.Workers)

	// Test: everything else comes from defaults
	defaults := Default()
	assert.Equal(t, defaults.Mapping.MaxFileSize, cfg.Mapping.MaxFileSize)
	assert.Equal(t, defaults.Cache, cfg.Cache)
	assert.Equal(t, defaults.Paths, cfg.Paths)
	assert.Equal(t, defaults.Storage, cfg.Storage)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
cache:
  max_entries: 10
storage:
  backend: sqlite
`)

	t.Setenv("SYMMAP_CACHE_MAX_ENTRIES", "20")
	t.Setenv("SYMMAP_STORAGE_BACKEND", "bbolt")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Cache.MaxEntries)
	assert.Equal(t, storage.BackendBolt, cfg.Storage.Backend)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()
	t.Setenv("SYMMAP_MAPPING_INCLUDE_LOCAL", "true")
	t.Setenv("SYMMAP_MAPPING_MAX_FILE_SIZE", "2048")
	t.Setenv("SYMMAP_LOG_LEVEL", "warn")

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Mapping.IncludeLocal)
	assert.Equal(t, 2048, cfg.Mapping.MaxFileSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	// Test: malformed YAML
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", "cache: [unclosed\n")
	_, err := NewLoader(dir).Load()
	assert.Error(t, err)

	// Test: invalid values fail validation
	dir = t.TempDir()
	writeConfig(t, dir, "config.yml", "storage:\n  backend: redis\n")
	_, err = NewLoader(dir).Load()
	assert.ErrorIs(t, err, ErrInvalidBackend)

	// Test: an explicit config file must exist
	_, err = NewFileLoader(t.TempDir(), filepath.Join(t.TempDir(), "missing.yml")).Load()
	assert.Error(t, err)
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_symbols: 42\n"), 0644))

	cfg, err := NewFileLoader(t.TempDir(), path).Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Cache.MaxSymbols)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"negative max entries", func(c *Config) { c.Cache.MaxEntries = -1 }, ErrInvalidCacheSettings},
		{"negative max symbols", func(c *Config) { c.Cache.MaxSymbols = -1 }, ErrInvalidCacheSettings},
		{"negative builds", func(c *Config) { c.Cache.MaxConcurrentBuilds = -2 }, ErrInvalidCacheSettings},
		{"negative retained bytes", func(c *Config) { c.Cache.RetainedTreeBytes = -1 }, ErrInvalidCacheSettings},
		{"empty include", func(c *Config) { c.Paths.Include = nil }, ErrEmptyInclude},
		{"bad include glob", func(c *Config) { c.Paths.Include = []string{"src/[a"} }, ErrInvalidPattern},
		{"bad ignore glob", func(c *Config) { c.Paths.Ignore = []string{"{a,b"} }, ErrInvalidPattern},
		{"zero max file size", func(c *Config) { c.Mapping.MaxFileSize = 0 }, ErrInvalidMapping},
		{"negative workers", func(c *Config) { c.Mapping.Workers = -1 }, ErrInvalidMapping},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, ErrInvalidBackend},
		{"store without path", func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.Path = " " }, ErrEmptyStoragePath},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.MaxEntries = -1
	cfg.Mapping.Workers = -1
	cfg.Storage.Backend = "redis"

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCacheSettings)
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.ErrorIs(t, err, ErrInvalidBackend)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestConversions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.MaxEntries = 5
	cfg.Cache.MaxSymbols = 0
	cfg.Cache.MaxConcurrentBuilds = 3
	cfg.Cache.RetainedTreeBytes = 100
	cfg.Mapping.Workers = 4

	// Test: cache options
	opts := cfg.CacheOptions()
	assert.Equal(t, 5, opts.Eviction.MaxEntries)
	assert.Equal(t, 0, opts.Eviction.MaxSymbols)
	assert.Equal(t, 3, opts.MaxConcurrentBuilds)
	assert.Equal(t, 100, opts.RetainedTreeBytes)
	assert.Nil(t, opts.Store)

	// Test: batch options
	batch := cfg.BatchOptions("/repo")
	assert.Equal(t, 4, batch.Workers)
	assert.Equal(t, "/repo", batch.Root)

	// Test: storage paths resolve against the root
	assert.Equal(t, filepath.Join("/repo", ".symmap", "maps.db"), cfg.StoragePath("/repo"))
	cfg.Storage.Path = "/var/maps.db"
	assert.Equal(t, "/var/maps.db", cfg.StoragePath("/repo"))

	// Test: log options
	assert.Equal(t, slog.LevelInfo, cfg.LogOptions(false).Level)
	assert.Equal(t, slog.LevelDebug, cfg.LogOptions(true).Level)
	cfg.Log.Level = "error"
	assert.Equal(t, slog.LevelError, cfg.LogOptions(false).Level)
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()

	// Test: disabled storage yields no store
	s, err := cfg.OpenStore(root)
	require.NoError(t, err)
	assert.Nil(t, s)

	// Test: sqlite store under the project directory
	cfg.Storage.Backend = storage.BackendSQLite
	s, err = cfg.OpenStore(root)
	require.NoError(t, err)
	require.NotNil(t, s)
	paths, err := s.Paths(context.Background())
	require.NoError(t, err)
	assert.Empty(t, paths)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(root, ".symmap", "maps.db"))
}

func TestDiscovery(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "lib"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "A.java"), []byte("class A {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "lib", "B.java"), []byte("class B {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("notes\n"), 0644))

	fd, err := Default().Discovery(root, nil)
	require.NoError(t, err)
	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "README.md"), filepath.Join(root, "src", "A.java")}, files)
}
