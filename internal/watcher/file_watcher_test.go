package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce
// - Rapid changes are coalesced and deduplicated into one sorted callback
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - File deleted triggers callback
// - Directory added triggers recursive watch
// - Filter drops rejected files and skips rejected directories
// - Context cancellation stops watcher
// - Concurrent Stop() calls are safe

const testDebounce = 50 * time.Millisecond

// recorder collects callback batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]string
	fired   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) callback(files []string) {
	r.mu.Lock()
	r.batches = append(r.batches, files)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func startWatcher(t *testing.T, dir string, opts ...Option) (FileWatcher, *recorder) {
	t.Helper()
	w, err := NewFileWatcher([]string{dir}, append([]Option{WithDebounce(testDebounce)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	rec := newRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))

	// Wait for watcher to initialize
	time.Sleep(50 * time.Millisecond)
	return w, rec
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "nonexistent")})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir)

	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))

	assert.Equal(t, []string{file}, rec.wait(t))
}

func TestFileWatcher_CoalescesChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir)

	a := filepath.Join(dir, "A.java")
	b := filepath.Join(dir, "B.java")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(b, []byte(strings.Repeat("x", i)), 0644))
		require.NoError(t, os.WriteFile(a, []byte(strings.Repeat("y", i)), 0644))
		time.Sleep(testDebounce / 5)
	}

	// Test: one sorted batch, each file once
	assert.Equal(t, []string{a, b}, rec.wait(t))
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, rec.count())
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, rec := startWatcher(t, dir)

	w.Pause()
	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))

	// Test: nothing fires while paused
	time.Sleep(4 * testDebounce)
	assert.Equal(t, 0, rec.count())

	// Test: accumulated changes fire on resume
	w.Resume()
	assert.Equal(t, []string{file}, rec.wait(t))
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))
	_, rec := startWatcher(t, dir)

	require.NoError(t, os.Remove(file))
	assert.Contains(t, rec.wait(t), file)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir)

	sub := filepath.Join(dir, "pkg", "inner")
	require.NoError(t, os.MkdirAll(sub, 0755))
	// Wait for the new directories to be watched
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(sub, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))
	assert.Contains(t, rec.wait(t), file)
}

func TestFileWatcher_Filter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ignored := filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(ignored, 0755))

	filter := func(path string, isDir bool) bool {
		if isDir {
			return filepath.Base(path) != "build"
		}
		return filepath.Ext(path) == ".java"
	}
	_, rec := startWatcher(t, dir, WithFilter(filter))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ignored, "Gen.java"), []byte("class Gen {}"), 0644))
	file := filepath.Join(dir, "A.java")
	require.NoError(t, os.WriteFile(file, []byte("class A {}"), 0644))

	assert.Equal(t, []string{file}, rec.wait(t))
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewFileWatcher([]string{dir}, WithDebounce(testDebounce))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	require.NoError(t, w.Start(ctx, rec.callback))
	cancel()

	// Stop returns once the loop has exited
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.java"), []byte("class A {}"), 0644))
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 0, rec.count())
}

func TestFileWatcher_ConcurrentStop(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func([]string) {}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()

	// Test: stopping a watcher that never started
	w, err = NewFileWatcher([]string{t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}
