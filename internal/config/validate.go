package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/symmap/internal/logging"
	"github.com/mvp-joe/symmap/internal/storage"
)

var (
	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidPattern indicates a path glob that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrEmptyInclude indicates there is nothing to map
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidMapping indicates invalid mapping configuration
	ErrInvalidMapping = errors.New("invalid mapping settings")

	// ErrInvalidBackend indicates an unsupported storage backend
	ErrInvalidBackend = errors.New("invalid storage backend")

	// ErrEmptyStoragePath indicates a persistent backend without a path
	ErrEmptyStoragePath = errors.New("empty storage path")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Validate checks that the configuration is valid and complete. Every
// problem is reported, not just the first.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateMapping(&cfg.Mapping); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Log.Level))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateCache(cfg *CacheConfig) error {
	var errs []error

	// Zero disables a ceiling; negative is a mistake
	if cfg.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: max_entries cannot be negative, got %d", ErrInvalidCacheSettings, cfg.MaxEntries))
	}
	if cfg.MaxSymbols < 0 {
		errs = append(errs, fmt.Errorf("%w: max_symbols cannot be negative, got %d", ErrInvalidCacheSettings, cfg.MaxSymbols))
	}
	if cfg.MaxConcurrentBuilds < 0 {
		errs = append(errs, fmt.Errorf("%w: max_concurrent_builds cannot be negative, got %d", ErrInvalidCacheSettings, cfg.MaxConcurrentBuilds))
	}
	if cfg.RetainedTreeBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: retained_tree_bytes cannot be negative, got %d", ErrInvalidCacheSettings, cfg.RetainedTreeBytes))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}
	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateMapping(cfg *MappingConfig) error {
	var errs []error

	if cfg.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size must be positive, got %d", ErrInvalidMapping, cfg.MaxFileSize))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidMapping, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStorage(cfg *StorageConfig) error {
	backend := strings.ToLower(cfg.Backend)
	switch backend {
	case "", storage.BackendNone:
		return nil
	case storage.BackendSQLite, storage.BackendBolt:
		if strings.TrimSpace(cfg.Path) == "" {
			return fmt.Errorf("%w: backend %s needs a path", ErrEmptyStoragePath, backend)
		}
		return nil
	default:
		return fmt.Errorf("%w: must be 'none', 'sqlite' or 'bbolt', got '%s'", ErrInvalidBackend, cfg.Backend)
	}
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches each error with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
