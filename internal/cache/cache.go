// Package cache keeps the current FileMap of every known file and rebuilds
// it when the file content changes.
//
// Each entry moves through Absent → Building → Ready. A lookup with newer
// content turns a Ready entry Stale: the stale map is served once, marked
// stale, while a rebuild runs in the background. At most one build runs per
// file; callers asking for the content being built wait for that build, and
// newer content cancels it. Published maps are never mutated, so a caller
// keeps using the map it observed even after the entry is replaced or
// evicted.
package cache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/semaphore"

	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/storage"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Builder produces maps. *indexer.Mapper implements it.
type Builder interface {
	Build(ctx context.Context, path string, src []byte) (*indexer.BuildResult, error)
	Rebuild(ctx context.Context, path string, prev *symbols.FileMap, prevTree parsers.Tree, src []byte, edits []parsers.Edit) (*indexer.BuildResult, error)
}

// Store persists ready maps so a new process can skip rebuilding files whose
// content has not changed. Get returns storage.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, path, fingerprint string) (*symbols.FileMap, error)
	Put(ctx context.Context, m *symbols.FileMap) error
}

// Options configures a Cache.
type Options struct {
	Eviction EvictionPolicy
	// MaxConcurrentBuilds bounds builds across all files (default: NumCPU).
	MaxConcurrentBuilds int
	// RetainedTreeBytes bounds the source bytes of trees kept for
	// incremental reparse. Zero disables retention.
	RetainedTreeBytes int
	// Store, when set, seeds absent entries and receives every built map.
	Store Store
}

// DefaultOptions returns the default cache options.
func DefaultOptions() Options {
	return Options{
		Eviction:            DefaultEvictionPolicy(),
		MaxConcurrentBuilds: runtime.NumCPU(),
		RetainedTreeBytes:   64 << 20,
	}
}

type entry struct {
	state       State
	m           *symbols.FileMap // last published map, possibly stale
	err         error            // last failure when Failed
	failedFP    string
	building    *build
	staleServed bool
}

// build is one in-flight map build. m and err are final once done is closed.
type build struct {
	fileID      string
	fingerprint string
	src         []byte
	base        *symbols.FileMap // previous map the edits apply to
	edits       []parsers.Edit
	revert      State // entry state restored if the build is cancelled

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	m   *symbols.FileMap
	err error
}

// Cache is safe for concurrent use.
type Cache struct {
	builder Builder
	opts    Options
	slots   *semaphore.Weighted
	trees   *treeStore

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
	recency *lru.Cache[string, *entry]
	symbols int
	stats   Stats
	closed  bool
}

// New creates a cache. Background builds log through the logger carried by
// ctx and stop when the cache is closed.
func New(ctx context.Context, builder Builder, opts Options) (*Cache, error) {
	if opts.MaxConcurrentBuilds <= 0 {
		opts.MaxConcurrentBuilds = runtime.NumCPU()
	}

	trees, err := newTreeStore(opts.RetainedTreeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree store: %w", err)
	}

	c := &Cache{
		builder: builder,
		opts:    opts,
		slots:   semaphore.NewWeighted(int64(opts.MaxConcurrentBuilds)),
		trees:   trees,
		entries: make(map[string]*entry),
	}
	c.recency, err = newRecency(c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create recency list: %w", err)
	}
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	return c, nil
}

// Get returns the map for src. A ready map with the same fingerprint is
// returned immediately. The first request with new content for a file that
// has a map receives the old map marked Stale while the rebuild runs;
// every other request waits for the build of its content.
func (c *Cache) Get(ctx context.Context, fileID string, src []byte) (*Snapshot, error) {
	return c.request(ctx, fileID, src, nil, false)
}

// Update returns the map for src, the result of applying edits to the
// content of the current map. The rebuild reuses the retained tree and
// every untouched subtree when possible and otherwise falls back to a full
// build. Update always waits for the new map.
func (c *Cache) Update(ctx context.Context, fileID string, src []byte, edits []parsers.Edit) (*Snapshot, error) {
	return c.request(ctx, fileID, src, edits, true)
}

func (c *Cache) request(ctx context.Context, fileID string, src []byte, edits []parsers.Edit, incremental bool) (*Snapshot, error) {
	fp := indexer.Fingerprint(src)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e, ok := c.entries[fileID]
	if !ok {
		e = &entry{}
		c.entries[fileID] = e
	}

	if e.m != nil && e.m.Fingerprint == fp {
		// Content may have returned to the published version.
		if e.building != nil {
			c.cancelLocked(e, ErrSuperseded)
		}
		e.state = Ready
		c.stats.Hits++
		c.touchLocked(fileID, e)
		snap := c.snapshotLocked(fileID, e)
		c.mu.Unlock()
		return snap, nil
	}

	if b := e.building; b != nil && b.fingerprint == fp {
		c.mu.Unlock()
		return c.wait(ctx, b)
	}

	if e.state == Failed && e.failedFP == fp {
		err := e.err
		c.touchLocked(fileID, e)
		c.mu.Unlock()
		return &Snapshot{FileID: fileID, State: Failed, Err: err}, unavailable(fileID, err)
	}

	c.stats.Misses++
	var base *symbols.FileMap
	if incremental {
		base = e.m
	}
	b := c.startLocked(fileID, e, fp, src, base, edits)

	if !incremental && e.m != nil && !e.staleServed {
		e.staleServed = true
		c.stats.StaleServed++
		c.touchLocked(fileID, e)
		snap := &Snapshot{FileID: fileID, Map: e.m, State: Stale, Stale: true}
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()
	return c.wait(ctx, b)
}

// startLocked launches a build for fp, cancelling any older in-flight build.
func (c *Cache) startLocked(fileID string, e *entry, fp string, src []byte, base *symbols.FileMap, edits []parsers.Edit) *build {
	if e.building != nil {
		c.cancelLocked(e, ErrSuperseded)
	}
	revert := e.state
	if revert == Ready {
		revert = Stale
	}

	ctx, cancel := context.WithCancel(c.ctx)
	b := &build{
		fileID:      fileID,
		fingerprint: fp,
		src:         src,
		base:        base,
		edits:       edits,
		revert:      revert,
		ctx:         slogctx.With(ctx, "file", fileID),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	e.building = b
	e.state = Building
	c.stats.Builds++

	c.wg.Add(1)
	go c.run(e, b)
	return b
}

// cancelLocked stops the in-flight build and restores the state the entry
// had before it started. Waiters receive reason.
func (c *Cache) cancelLocked(e *entry, reason error) {
	b := e.building
	if b == nil {
		return
	}
	b.err = reason
	b.cancel()
	e.building = nil
	e.state = b.revert
	if errors.Is(reason, ErrSuperseded) {
		c.stats.Superseded++
	} else {
		c.stats.Cancelled++
	}
	slogctx.Debug(b.ctx, "build cancelled", "reason", reason, "state", e.state)
}

func (c *Cache) run(e *entry, b *build) {
	defer c.wg.Done()
	defer close(b.done)

	res, warm, err := c.execute(b)
	if err == nil && !warm {
		c.persist(b, res.Map)
	}
	c.finish(e, b, res, warm, err)
}

// persist saves a built map unless its build was superseded or cancelled.
func (c *Cache) persist(b *build, m *symbols.FileMap) {
	if c.opts.Store == nil {
		return
	}
	if err := b.ctx.Err(); err != nil {
		slogctx.Debug(b.ctx, "not persisting map of abandoned build", "reason", err)
		return
	}
	if err := c.opts.Store.Put(b.ctx, m); err != nil {
		if b.ctx.Err() != nil {
			slogctx.Debug(b.ctx, "build abandoned while persisting map", "error", err)
			return
		}
		slogctx.Warn(b.ctx, "failed to persist map", "error", err)
	}
}

// execute produces the map outside the cache lock, holding a build slot.
func (c *Cache) execute(b *build) (*indexer.BuildResult, bool, error) {
	if err := c.slots.Acquire(b.ctx, 1); err != nil {
		return nil, false, err
	}
	defer c.slots.Release(1)

	if b.base == nil && c.opts.Store != nil {
		m, err := c.opts.Store.Get(b.ctx, b.fileID, b.fingerprint)
		switch {
		case err == nil:
			slogctx.Debug(b.ctx, "warm start from store", "symbols", m.Len())
			return &indexer.BuildResult{Map: m}, true, nil
		case !errors.Is(err, storage.ErrNotFound):
			slogctx.Warn(b.ctx, "failed to read stored map", "error", err)
		}
	}

	if b.base != nil {
		prevTree := c.trees.get(b.fileID)
		if prevTree != nil {
			defer prevTree.Close()
		}
		res, err := c.builder.Rebuild(b.ctx, b.fileID, b.base, prevTree, b.src, b.edits)
		return res, false, err
	}

	res, err := c.builder.Build(b.ctx, b.fileID, b.src)
	return res, false, err
}

// finish publishes the result if the build is still current.
func (c *Cache) finish(e *entry, b *build, res *indexer.BuildResult, warm bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.building != b || c.entries[b.fileID] != e {
		res.Close()
		if b.err == nil {
			b.err = ErrBuildCancelled
		}
		return
	}
	e.building = nil

	if err != nil {
		c.stats.Failures++
		if e.m != nil {
			c.symbols -= e.m.Len()
			e.m = nil
		}
		c.trees.remove(b.fileID)
		e.state = Failed
		e.err = err
		e.failedFP = b.fingerprint
		b.err = err
		slogctx.Warn(b.ctx, "map build failed", "error", err)
		c.touchLocked(b.fileID, e)
		c.evictLocked()
		return
	}

	if e.m != nil {
		c.symbols -= e.m.Len()
	}
	e.m = res.Map
	c.symbols += res.Map.Len()
	e.state = Ready
	e.err = nil
	e.failedFP = ""
	e.staleServed = false
	if warm {
		c.stats.WarmStarts++
	}
	if res.Partial {
		c.stats.PartialBuilds++
	}
	c.trees.put(b.fileID, res.Tree)
	res.Tree = nil
	b.m = res.Map

	slogctx.Debug(b.ctx, "map published",
		"symbols", res.Map.Len(),
		"partial", res.Partial,
		"warm", warm)

	c.touchLocked(b.fileID, e)
	c.evictLocked()
}

// wait blocks until b finishes or ctx is done. Cancelling ctx abandons the
// wait, not the build.
func (c *Cache) wait(ctx context.Context, b *build) (*Snapshot, error) {
	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.err != nil {
		snap := &Snapshot{FileID: b.fileID, State: Failed, Err: b.err}
		if errors.Is(b.err, ErrSuperseded) || errors.Is(b.err, ErrBuildCancelled) || errors.Is(b.err, ErrClosed) {
			snap.State = b.revert
		}
		return snap, unavailable(b.fileID, b.err)
	}
	return &Snapshot{FileID: b.fileID, Map: b.m, State: Ready}, nil
}

func (c *Cache) snapshotLocked(fileID string, e *entry) *Snapshot {
	snap := &Snapshot{FileID: fileID, Map: e.m, State: e.state}
	if e.m != nil && e.state != Ready {
		snap.Stale = true
	}
	if e.state == Failed {
		snap.Err = e.err
	}
	return snap
}

// Peek returns what the cache currently holds for a file without waiting
// or building. It counts as a query for eviction.
func (c *Cache) Peek(fileID string) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok {
		return &Snapshot{FileID: fileID, State: Absent}
	}
	c.touchLocked(fileID, e)
	return c.snapshotLocked(fileID, e)
}

// Status returns the state of a file's entry.
func (c *Cache) Status(fileID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fileID]; ok {
		return e.state
	}
	return Absent
}

// Invalidate drops a file's entry and cancels its build. It reports whether
// the file was cached.
func (c *Cache) Invalidate(fileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok {
		return false
	}
	c.cancelLocked(e, ErrBuildCancelled)
	c.dropLocked(fileID, e)
	c.recency.Remove(fileID)
	return true
}

// Cancel stops a file's in-flight build. The entry returns to the state it
// had before the build started. It reports whether a build was running.
func (c *Cache) Cancel(fileID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fileID]
	if !ok || e.building == nil {
		return false
	}
	c.cancelLocked(e, ErrBuildCancelled)
	if e.state == Absent && e.m == nil {
		delete(c.entries, fileID)
	}
	return true
}

// Files returns the ids of every cached file.
func (c *Cache) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	return out
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	for _, e := range c.entries {
		if e.building != nil {
			s.Building++
		}
	}
	s.Symbols = c.symbols
	s.RetainedTrees = c.trees.size()
	return s
}

// Close cancels every build, waits for them and releases retained trees.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, e := range c.entries {
		c.cancelLocked(e, ErrClosed)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.trees.close()
	return nil
}
