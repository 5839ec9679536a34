package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/cache"
)

// Test Plan for WatchCoordinator:
// - Changed files with a cache entry are invalidated and reported
// - Files the cache never saw are left alone
// - Paths outside the root are ignored
// - An empty change list does nothing
// - A file watcher start error is returned and the watcher is stopped
// - Context cancellation stops the watcher and returns

type mockFileWatcher struct {
	mu       sync.Mutex
	callback func(files []string)
	startErr error
	stopped  bool
	started  chan struct{}
}

func newMockFileWatcher() *mockFileWatcher {
	return &mockFileWatcher{started: make(chan struct{})}
}

func (m *mockFileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
	close(m.started)
	return nil
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockFileWatcher) Pause()  {}
func (m *mockFileWatcher) Resume() {}

func (m *mockFileWatcher) fire(files ...string) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	cb(files)
}

func (m *mockFileWatcher) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type mockCache struct {
	mu          sync.Mutex
	states      map[string]cache.State
	invalidated []string
}

func (m *mockCache) Status(fileID string) cache.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[fileID]
}

func (m *mockCache) Invalidate(fileID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[fileID] == cache.Absent {
		return false
	}
	m.invalidated = append(m.invalidated, fileID)
	m.states[fileID] = cache.Absent
	return true
}

type rootResolver string

func (r rootResolver) FileID(path string) (string, error) {
	rel, err := filepath.Rel(string(r), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside %s", path, r)
	}
	return filepath.ToSlash(rel), nil
}

func startCoordinator(t *testing.T, files FileWatcher, c MapCache) (*WatchCoordinator, context.CancelFunc, chan error) {
	t.Helper()
	coord := NewWatchCoordinator(files, c, rootResolver("/repo"))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- coord.Start(ctx) }()
	t.Cleanup(cancel)
	return coord, cancel, errCh
}

func TestWatchCoordinator_InvalidatesCachedFiles(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	c := &mockCache{states: map[string]cache.State{
		"src/A.java": cache.Ready,
		"src/B.java": cache.Stale,
	}}

	coord := NewWatchCoordinator(files, c, rootResolver("/repo"))
	reported := make(chan []string, 1)
	coord.OnInvalidate(func(ids []string) { reported <- ids })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Start(ctx)
	<-files.started

	files.fire("/repo/src/A.java", "/repo/src/B.java", "/repo/src/New.java", "/elsewhere/C.java")

	select {
	case ids := <-reported:
		assert.Equal(t, []string{"src/A.java", "src/B.java"}, ids)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not reported")
	}
	assert.Equal(t, []string{"src/A.java", "src/B.java"}, c.invalidated)
}

func TestWatchCoordinator_NothingCached(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	c := &mockCache{states: map[string]cache.State{}}
	coord, _, _ := startCoordinator(t, files, c)

	called := false
	coord.OnInvalidate(func([]string) { called = true })
	<-files.started

	// Test: empty and uncached changes do nothing
	files.fire()
	files.fire("/repo/src/A.java")
	assert.False(t, called)
	assert.Empty(t, c.invalidated)
}

func TestWatchCoordinator_StartError(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	files.startErr = errors.New("watch failed")

	err := NewWatchCoordinator(files, &mockCache{}, rootResolver("/repo")).Start(context.Background())
	assert.EqualError(t, err, "watch failed")
	assert.True(t, files.isStopped())
}

func TestWatchCoordinator_ContextCancellation(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	_, cancel, errCh := startCoordinator(t, files, &mockCache{states: map[string]cache.State{}})
	<-files.started
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
	assert.True(t, files.isStopped())
}
