package cache

import (
	"math"
	"sync"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

// retainedTree guards a tree kept for incremental reparse. The tree is
// closed exactly once, either on deletion from the tree cache or on Close.
type retainedTree struct {
	mu     sync.Mutex
	tree   parsers.Tree
	closed bool
}

// acquire returns an independent copy of the tree, or nil once closed.
func (r *retainedTree) acquire() parsers.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	return r.tree.Clone()
}

func (r *retainedTree) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		r.tree.Close()
	}
}

// treeStore keeps the last tree per file, weighted by source size.
type treeStore struct {
	cache *otter.Cache[string, *retainedTree]
}

// newTreeStore returns nil when capacity is not positive, which disables
// retention.
func newTreeStore(capacity int) (*treeStore, error) {
	if capacity <= 0 {
		return nil, nil
	}
	c, err := otter.MustBuilder[string, *retainedTree](capacity).
		Cost(func(key string, value *retainedTree) uint32 {
			n := len(value.tree.Source())
			if n > math.MaxUint32 {
				return math.MaxUint32
			}
			if n == 0 {
				return 1
			}
			return uint32(n)
		}).
		DeletionListener(func(key string, value *retainedTree, cause otter.DeletionCause) {
			value.close()
		}).
		Build()
	if err != nil {
		return nil, err
	}
	return &treeStore{cache: &c}, nil
}

// put retains tree for fileID, replacing and closing any previous tree.
// Trees that do not fit are closed immediately.
func (s *treeStore) put(fileID string, tree parsers.Tree) {
	if tree == nil {
		return
	}
	if s == nil {
		tree.Close()
		return
	}
	r := &retainedTree{tree: tree}
	if !s.cache.Set(fileID, r) {
		r.close()
	}
}

// get returns a copy of the retained tree for fileID, or nil.
func (s *treeStore) get(fileID string) parsers.Tree {
	if s == nil {
		return nil
	}
	r, ok := s.cache.Get(fileID)
	if !ok {
		return nil
	}
	return r.acquire()
}

func (s *treeStore) remove(fileID string) {
	if s == nil {
		return
	}
	if r, ok := s.cache.Get(fileID); ok {
		s.cache.Delete(fileID)
		r.close()
	}
}

func (s *treeStore) size() int {
	if s == nil {
		return 0
	}
	return s.cache.Size()
}

func (s *treeStore) close() {
	if s == nil {
		return
	}
	s.cache.Range(func(key string, value *retainedTree) bool {
		value.close()
		return true
	})
	s.cache.Close()
}
