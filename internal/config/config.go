// Package config loads symmap configuration from .symmap/config.yml with
// SYMMAP_* environment overrides.
package config

// Config represents the complete symmap configuration.
// It can be loaded from .symmap/config.yml with environment variable overrides.
type Config struct {
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Mapping MappingConfig `yaml:"mapping" mapstructure:"mapping"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// CacheConfig bounds the in-memory map cache.
type CacheConfig struct {
	MaxEntries          int `yaml:"max_entries" mapstructure:"max_entries"`                     // files kept; 0 disables the limit
	MaxSymbols          int `yaml:"max_symbols" mapstructure:"max_symbols"`                     // symbols kept across all files; 0 disables the limit
	MaxConcurrentBuilds int `yaml:"max_concurrent_builds" mapstructure:"max_concurrent_builds"` // 0 means one per CPU
	RetainedTreeBytes   int `yaml:"retained_tree_bytes" mapstructure:"retained_tree_bytes"`     // source bytes of trees kept for incremental reparse
}

// PathsConfig defines which files to map and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// MappingConfig controls how files are mapped.
type MappingConfig struct {
	MaxFileSize  int  `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes; larger files get a placeholder
	Workers      int  `yaml:"workers" mapstructure:"workers"`             // concurrent files in batch mode; 0 means one per CPU
	IncludeLocal bool `yaml:"include_local" mapstructure:"include_local"` // show symbols declared inside method bodies
}

// StorageConfig selects where built maps persist between runs.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // "none", "sqlite" or "bbolt"
	Path    string `yaml:"path" mapstructure:"path"`       // relative paths resolve against the project root
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn or error
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxEntries:          1024,
			MaxSymbols:          1_000_000,
			MaxConcurrentBuilds: 0,
			RetainedTreeBytes:   64 << 20,
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.go",
				"**/*.java",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.py",
				"**/*.rs",
				"**/*.c",
				"**/*.h",
				"**/*.php",
				"**/*.rb",
				"**/*.md",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				".symmap/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
			},
		},
		Mapping: MappingConfig{
			MaxFileSize:  1 << 20,
			Workers:      0,
			IncludeLocal: false,
		},
		Storage: StorageConfig{
			Backend: "none",
			Path:    ".symmap/maps.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
