// Package query is the read-only surface over cached maps. Every operation
// is a pure function of the snapshot the cache holds at call time: nothing
// here builds a map or waits for one.
package query

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Snapshots is the part of the cache the service reads. *cache.Cache
// implements it.
type Snapshots interface {
	Peek(fileID string) *cache.Snapshot
	Status(fileID string) cache.State
	Invalidate(fileID string) bool
}

// Service answers outline, lookup and name queries.
type Service struct {
	snaps Snapshots
}

// NewService creates a query service over snaps.
func NewService(snaps Snapshots) *Service {
	return &Service{snaps: snaps}
}

// snapshot returns the current map for fileID or an error wrapping
// symbols.ErrMapUnavailable.
func (s *Service) snapshot(fileID string) (*cache.Snapshot, error) {
	snap := s.snaps.Peek(fileID)
	if snap.Map != nil {
		return snap, nil
	}
	if snap.Err != nil {
		return nil, fmt.Errorf("%s is %s: %w: %w", fileID, snap.State, symbols.ErrMapUnavailable, snap.Err)
	}
	return nil, fmt.Errorf("%s is %s: %w", fileID, snap.State, symbols.ErrMapUnavailable)
}

func newMeta(snap *cache.Snapshot) Meta {
	m := snap.Map
	meta := Meta{
		FileID:      snap.FileID,
		Fingerprint: m.Fingerprint,
		Language:    m.Language,
		State:       snap.State.String(),
		Stale:       snap.Stale,
		Degraded:    m.Degraded,
	}
	if len(m.Diagnostics) > 0 {
		meta.Diagnostics = append([]symbols.Diagnostic(nil), m.Diagnostics...)
	}
	return meta
}

// Outline returns the root symbols of a file, each expanded opts.MaxDepth
// levels deep.
func (s *Service) Outline(fileID string, opts OutlineOptions) (*OutlineResult, error) {
	snap, err := s.snapshot(fileID)
	if err != nil {
		return nil, err
	}
	return &OutlineResult{
		Meta:    newMeta(snap),
		Symbols: expand(snap.Map, snap.Map.Roots, opts, 1),
	}, nil
}

// Expand returns the children of one symbol, expanded like Outline. It is
// how callers drill into an outline fetched with a small MaxDepth.
func (s *Service) Expand(fileID string, id symbols.ID, opts OutlineOptions) (*OutlineResult, error) {
	snap, err := s.snapshot(fileID)
	if err != nil {
		return nil, err
	}
	sym, ok := snap.Map.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", id, fileID, ErrSymbolNotFound)
	}
	return &OutlineResult{
		Meta:    newMeta(snap),
		Symbols: expand(snap.Map, sym.Children, opts, 1),
	}, nil
}

// expand builds views for ids and their descendants. level is the depth of
// ids below the listing point, starting at 1.
func expand(m *symbols.FileMap, ids []symbols.ID, opts OutlineOptions, level int) []*SymbolView {
	out := make([]*SymbolView, 0, len(ids))
	for _, id := range ids {
		sym, ok := m.Lookup(id)
		if !ok || (sym.Local && !opts.IncludeLocal) {
			continue
		}
		v := newView(sym)
		if opts.MaxDepth == 0 || level < opts.MaxDepth {
			v.Children = expand(m, sym.Children, opts, level+1)
		} else {
			v.HasMore = hasVisibleChild(m, sym, opts)
		}
		out = append(out, v)
	}
	return out
}

func hasVisibleChild(m *symbols.FileMap, sym *symbols.Symbol, opts OutlineOptions) bool {
	for _, c := range m.ChildrenOf(sym.ID) {
		if opts.IncludeLocal || !c.Local {
			return true
		}
	}
	return false
}

// Lookup returns the innermost symbol whose span contains pos. Local
// symbols are considered.
func (s *Service) Lookup(fileID string, pos Position) (*LookupResult, error) {
	snap, err := s.snapshot(fileID)
	if err != nil {
		return nil, err
	}
	m := snap.Map
	res := &LookupResult{Meta: newMeta(snap), Position: pos.String()}

	var found *symbols.Symbol
	ids := m.Roots
	for {
		// Siblings only overlap in degraded maps; the narrowest wins.
		var next *symbols.Symbol
		for _, id := range ids {
			sym, ok := m.Lookup(id)
			if ok && pos.within(sym.Span) && (next == nil || sym.Span.Len() < next.Span.Len()) {
				next = sym
			}
		}
		if next == nil {
			break
		}
		found = next
		res.Path = append(res.Path, next.Name)
		ids = next.Children
	}

	if found != nil {
		res.Symbol = newView(found)
	}
	return res, nil
}

// FindByName returns every symbol whose name matches pattern, optionally
// restricted to kinds. Patterns use glob syntax (*, ?, [abc], {a,b});
// a pattern without metacharacters matches names exactly.
func (s *Service) FindByName(fileID, pattern string, kinds ...symbols.Kind) (*FindResult, error) {
	match, err := compileName(pattern)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(fileID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[symbols.Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	res := &FindResult{Meta: newMeta(snap), Pattern: pattern, Matches: []*SymbolView{}}
	snap.Map.Walk(func(sym *symbols.Symbol, depth int) bool {
		if (len(wanted) == 0 || wanted[sym.Kind]) && match(sym.Name) {
			res.Matches = append(res.Matches, newView(sym))
		}
		return true
	})
	return res, nil
}

func compileName(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if glob.QuoteMeta(pattern) == pattern {
		return func(name string) bool { return name == pattern }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return g.Match, nil
}

// Invalidate drops the cached map for fileID. It reports whether the file
// was cached.
func (s *Service) Invalidate(fileID string) bool {
	return s.snaps.Invalidate(fileID)
}

// Status reports the cache state of fileID.
func (s *Service) Status(fileID string) cache.State {
	return s.snaps.Status(fileID)
}
