package parsers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Registry maps languages and file extensions to adapters.
type Registry struct {
	mu         sync.RWMutex
	adapters   map[string]Adapter
	extensions map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:   make(map[string]Adapter),
		extensions: make(map[string]string),
	}
}

// DefaultRegistry returns a registry with every built-in adapter.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoParser(), ".go")
	r.Register(NewJavaParser(), ".java")
	r.Register(NewTypeScriptParser(), ".ts", ".mts", ".cts")
	r.Register(NewTSXParser(), ".tsx")
	r.Register(NewJavaScriptParser(), ".js", ".jsx", ".mjs", ".cjs")
	r.Register(NewPythonParser(), ".py", ".pyi")
	r.Register(NewRustParser(), ".rs")
	r.Register(NewCParser(), ".c", ".h")
	r.Register(NewPhpParser(), ".php")
	r.Register(NewRubyParser(), ".rb")
	r.Register(NewMarkdownParser(), ".md", ".markdown")
	return r
}

// Register adds an adapter and the extensions it handles, replacing any
// previous registration for the same language or extension.
func (r *Registry) Register(a Adapter, extensions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Language()] = a
	for _, ext := range extensions {
		r.extensions[strings.ToLower(ext)] = a.Language()
	}
}

// ForLanguage returns the adapter registered for a language.
func (r *Registry) ForLanguage(lang string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", symbols.ErrUnsupportedLanguage, lang)
	}
	return a, nil
}

// DetectLanguage returns the language for a path, or "" if unknown.
func (r *Registry) DetectLanguage(path string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extensions[strings.ToLower(filepath.Ext(path))]
}

// ForPath returns the adapter for a file path based on its extension.
func (r *Registry) ForPath(path string) (Adapter, error) {
	lang := r.DetectLanguage(path)
	if lang == "" {
		return nil, fmt.Errorf("%w: no adapter for %s", symbols.ErrUnsupportedLanguage, filepath.Base(path))
	}
	return r.ForLanguage(lang)
}

// Supports reports whether a path has a registered adapter.
func (r *Registry) Supports(path string) bool {
	return r.DetectLanguage(path) != ""
}

// Languages returns the registered languages in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.adapters))
	for lang := range r.adapters {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Extensions returns the registered file extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
