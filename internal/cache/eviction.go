package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// EvictionPolicy controls when ready entries are dropped, least recently
// queried first. Zero disables a limit.
type EvictionPolicy struct {
	MaxEntries int // Entry-count ceiling (default: 1024)
	MaxSymbols int // Total symbols held across all maps (default: 1,000,000)
}

// DefaultEvictionPolicy returns the default eviction policy.
func DefaultEvictionPolicy() EvictionPolicy {
	return EvictionPolicy{
		MaxEntries: 1024,
		MaxSymbols: 1_000_000,
	}
}

// unlimitedRecency sizes the recency list. The entry ceiling is enforced
// by evictLocked so building entries can be skipped.
const unlimitedRecency = 1 << 30

func newRecency(onEvict func(fileID string, e *entry)) (*lru.Cache[string, *entry], error) {
	return lru.NewWithEvict[string, *entry](unlimitedRecency, onEvict)
}

// overLimitLocked reports whether either ceiling is exceeded.
func (c *Cache) overLimitLocked() bool {
	p := c.opts.Eviction
	if p.MaxEntries > 0 && len(c.entries) > p.MaxEntries {
		return true
	}
	return p.MaxSymbols > 0 && c.symbols > p.MaxSymbols
}

// evictLocked drops least recently queried entries until both ceilings
// hold or nothing evictable is left. Building entries are skipped; they
// rejoin the recency list when their build finishes.
func (c *Cache) evictLocked() {
	for c.overLimitLocked() {
		if _, _, ok := c.recency.RemoveOldest(); !ok {
			return
		}
	}
}

// onEvict runs with c.mu held, from recency list removals.
func (c *Cache) onEvict(fileID string, e *entry) {
	if e.building != nil {
		return
	}
	if cur, ok := c.entries[fileID]; !ok || cur != e {
		return
	}
	c.dropLocked(fileID, e)
	c.stats.Evictions++
}

// dropLocked removes an entry and everything it holds.
func (c *Cache) dropLocked(fileID string, e *entry) {
	if e.m != nil {
		c.symbols -= e.m.Len()
		e.m = nil
	}
	delete(c.entries, fileID)
	c.trees.remove(fileID)
}

// touchLocked marks an entry as just queried.
func (c *Cache) touchLocked(fileID string, e *entry) {
	c.recency.Add(fileID, e)
}
