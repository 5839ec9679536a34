package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// StateDir is the per-project directory holding config and the warm-start
// store. Discovery never descends into it.
const StateDir = ".symmap"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery finds source files under a root with include and ignore
// glob patterns.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
	supports        func(path string) bool
}

// NewFileDiscovery compiles the patterns. supports, when not nil, filters
// out files no parser adapter can read.
func NewFileDiscovery(rootDir string, includePatterns, ignorePatterns []string, supports func(path string) bool) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir:  rootDir,
		supports: supports,
	}

	var err error
	if fd.includePatterns, err = compilePatterns(includePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}
	return fd, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// DiscoverFiles walks the directory tree and returns matching files, sorted.
// With no include patterns every file is a candidate.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) {
			return nil
		}
		if len(fd.includePatterns) > 0 && !fd.matchesAnyPattern(relPath, fd.includePatterns) {
			return nil
		}
		if fd.supports != nil && !fd.supports(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, err
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, StateDir+"/") || relPath == StateDir {
		return true
	}

	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return fd.matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level files also match "**/" patterns with the prefix removed, so
	// "**/*.go" matches both "main.go" and "cmd/main.go".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}

// Matches reports whether path, absolute or relative to the root, would be
// discovered. Directories match unless ignored.
func (fd *FileDiscovery) Matches(path string, isDir bool) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(fd.rootDir, path)
	}
	relPath, err := filepath.Rel(fd.rootDir, path)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	if relPath == ".." || strings.HasPrefix(relPath, "../") {
		return false
	}
	if relPath == "." {
		return isDir
	}
	if fd.shouldIgnore(relPath) {
		return false
	}
	if isDir {
		return true
	}
	if len(fd.includePatterns) > 0 && !fd.matchesAnyPattern(relPath, fd.includePatterns) {
		return false
	}
	return fd.supports == nil || fd.supports(path)
}
