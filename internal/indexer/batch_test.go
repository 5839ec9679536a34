package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Test Plan for batch mapping:
// - Supported files are mapped, others get [NO MAP], oversized get [NO MAP - TOO LARGE]
// - Combined output has one "### path" section per file, sorted by path
// - A read failure is aggregated without affecting other files
// - Progress callbacks see every file
// - Discovery honours include and ignore patterns and skips the state dir

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type countingProgress struct {
	NoOpProgressReporter
	mu     sync.Mutex
	total  int
	mapped []string
	stats  *BatchStats
}

func (c *countingProgress) OnMappingStart(total int) { c.total = total }
func (c *countingProgress) OnFileMapped(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapped = append(c.mapped, path)
}
func (c *countingProgress) OnComplete(stats *BatchStats) { c.stats = stats }

func TestMapFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := []string{
		writeFile(t, root, "src/Shapes.java", scenarioJava),
		writeFile(t, root, "notes.txt", "not code"),
		writeFile(t, root, "big.py", "x = 1\n"+strings.Repeat("# padding\n", 200)),
		writeFile(t, root, "app.py", "class App:\n    def run(self):\n        pass\n"),
	}

	progress := &countingProgress{}
	mapper := NewMapper(WithMaxFileSize(1024))
	res, err := mapper.MapFiles(context.Background(), paths, BatchOptions{Workers: 2, Root: root, Progress: progress})
	require.NoError(t, err)

	assert.Equal(t, []string{"app.py", "big.py", "notes.txt", "src/Shapes.java"}, res.Paths())
	assert.Equal(t, NoMap, res.Files["notes.txt"].Placeholder)
	assert.Equal(t, NoMapTooLarge, res.Files["big.py"].Placeholder)
	require.NotNil(t, res.Files["src/Shapes.java"].Map)
	assert.Equal(t, "src/Shapes.java", res.Files["src/Shapes.java"].Map.FileID)

	assert.Equal(t, 4, res.Stats.Files)
	assert.Equal(t, 2, res.Stats.Mapped)
	assert.Equal(t, 1, res.Stats.Unsupported)
	assert.Equal(t, 1, res.Stats.TooLarge)
	assert.Zero(t, res.Stats.Failed)

	assert.Equal(t, 4, progress.total)
	assert.Len(t, progress.mapped, 4)
	require.NotNil(t, progress.stats)

	out := res.Combined(symbols.RenderOptions{})
	sections := []string{"### app.py", "### big.py", "### notes.txt", "### src/Shapes.java"}
	last := -1
	for _, s := range sections {
		at := strings.Index(out, s)
		require.GreaterOrEqual(t, at, 0, s)
		assert.Greater(t, at, last, s)
		last = at
	}
	assert.Contains(t, out, "### notes.txt\n\n[NO MAP]\n")
	assert.Contains(t, out, "### big.py\n\n[NO MAP - TOO LARGE]\n")
	assert.Contains(t, out, "App")
}

// Test: a missing file is reported but the batch continues
func TestMapFiles_Failure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	good := writeFile(t, root, "ok.rb", "class Ok\n  def hi; end\nend\n")
	missing := filepath.Join(root, "gone.rb")

	res, err := NewMapper().MapFiles(context.Background(), []string{good, missing}, BatchOptions{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.rb")
	require.NotNil(t, res)
	assert.NotNil(t, res.Files["ok.rb"].Map)
	assert.Equal(t, NoMap, res.Files["gone.rb"].Placeholder)
	assert.Equal(t, 1, res.Stats.Failed)
}

// Test: cancellation aborts the batch
func TestMapFiles_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeFile(t, root, "a.java", scenarioJava)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMapper().MapFiles(ctx, []string{path}, BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileDiscovery(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "web/app.ts", "export class App {}\n")
	writeFile(t, root, "web/node_modules/lib/index.js", "module.exports = {}\n")
	writeFile(t, root, ".symmap/config.yml", "log:\n  level: debug\n")
	writeFile(t, root, "notes.txt", "readme\n")

	mapper := NewMapper()
	fd, err := NewFileDiscovery(root, nil, []string{"**/node_modules/**"}, mapper.Supports)
	require.NoError(t, err)
	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "main.go"), filepath.Join(root, "web/app.ts")}, files)

	fd, err = NewFileDiscovery(root, []string{"**/*.go"}, nil, nil)
	require.NoError(t, err)
	files, err = fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "main.go")}, files)

	_, err = NewFileDiscovery(root, []string{"[unclosed"}, nil, nil)
	assert.Error(t, err)

	res, err := mapper.MapDir(context.Background(), mustDiscovery(t, root), BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "web/app.ts"}, res.Paths())
}

func mustDiscovery(t *testing.T, root string) *FileDiscovery {
	t.Helper()
	fd, err := NewFileDiscovery(root, []string{"**/*.go", "**/*.ts"}, []string{"**/node_modules/**"}, nil)
	require.NoError(t, err)
	return fd
}

func TestFileDiscovery_Matches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fd, err := NewFileDiscovery(root, []string{"**/*.java"}, []string{"build/**"}, NewMapper().Supports)
	require.NoError(t, err)

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{filepath.Join(root, "src", "A.java"), false, true},
		{"Root.java", false, true},
		{filepath.Join(root, "src", "a.go"), false, false},
		{filepath.Join(root, "build", "Gen.java"), false, false},
		{filepath.Join(root, "build"), true, false},
		{filepath.Join(root, ".symmap"), true, false},
		{filepath.Join(root, "src"), true, true},
		{root, true, true},
		{filepath.Join(filepath.Dir(root), "Other.java"), false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fd.Matches(tt.path, tt.isDir), tt.path)
	}
}
