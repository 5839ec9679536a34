package symbols

import (
	"fmt"
	"sort"
)

// FileMap is the symbol tree for one file at one content fingerprint.
// A published FileMap is never mutated; rebuilds produce a new one.
type FileMap struct {
	FileID      string         `json:"file_id"`
	Fingerprint string         `json:"fingerprint"`
	Language    string         `json:"language"`
	Roots       []ID           `json:"roots"`
	Symbols     map[ID]*Symbol `json:"symbols"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	Degraded    bool           `json:"degraded,omitempty"`
}

// NewFileMap returns an empty map for a file.
func NewFileMap(fileID, fingerprint, language string) *FileMap {
	return &FileMap{
		FileID:      fileID,
		Fingerprint: fingerprint,
		Language:    language,
		Roots:       []ID{},
		Symbols:     map[ID]*Symbol{},
	}
}

// Lookup returns the symbol with the given id.
func (m *FileMap) Lookup(id ID) (*Symbol, bool) {
	s, ok := m.Symbols[id]
	return s, ok
}

// Root returns the top-level symbols in document order.
func (m *FileMap) Root() []*Symbol {
	return m.resolve(m.Roots)
}

// ChildrenOf returns the direct children of a symbol in document order.
func (m *FileMap) ChildrenOf(id ID) []*Symbol {
	s, ok := m.Symbols[id]
	if !ok {
		return nil
	}
	return m.resolve(s.Children)
}

func (m *FileMap) resolve(ids []ID) []*Symbol {
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.Symbols[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Walk visits every symbol in pre-order. Returning false from fn skips the
// symbol's children.
func (m *FileMap) Walk(fn func(s *Symbol, depth int) bool) {
	var visit func(ids []ID, depth int)
	visit = func(ids []ID, depth int) {
		for _, id := range ids {
			s, ok := m.Symbols[id]
			if !ok {
				continue
			}
			if fn(s, depth) {
				visit(s.Children, depth+1)
			}
		}
	}
	visit(m.Roots, 0)
}

// Len returns the number of symbols in the map.
func (m *FileMap) Len() int {
	return len(m.Symbols)
}

// HasErrors reports whether any diagnostics were recorded.
func (m *FileMap) HasErrors() bool {
	return len(m.Diagnostics) > 0 || m.Degraded
}

// Clone returns a deep copy sharing nothing with m.
func (m *FileMap) Clone() *FileMap {
	c := &FileMap{
		FileID:      m.FileID,
		Fingerprint: m.Fingerprint,
		Language:    m.Language,
		Roots:       append([]ID{}, m.Roots...),
		Symbols:     make(map[ID]*Symbol, len(m.Symbols)),
		Degraded:    m.Degraded,
	}
	for id, s := range m.Symbols {
		c.Symbols[id] = s.Clone()
	}
	if m.Diagnostics != nil {
		c.Diagnostics = append([]Diagnostic(nil), m.Diagnostics...)
	}
	return c
}

// SortedIDs returns every symbol id ordered by span start, then id.
func (m *FileMap) SortedIDs() []ID {
	ids := make([]ID, 0, len(m.Symbols))
	for id := range m.Symbols {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.Symbols[ids[i]], m.Symbols[ids[j]]
		if a.Span.StartByte != b.Span.StartByte {
			return a.Span.StartByte < b.Span.StartByte
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Validate checks the tree invariants: every child lies inside its parent,
// siblings do not overlap, and parent/child links agree.
func (m *FileMap) Validate() error {
	seen := make(map[ID]bool, len(m.Symbols))

	var check func(parent *Symbol, ids []ID) error
	check = func(parent *Symbol, ids []ID) error {
		var prev *Symbol
		for _, id := range ids {
			s, ok := m.Symbols[id]
			if !ok {
				return fmt.Errorf("%w: dangling symbol id %s", ErrMalformedMap, id)
			}
			if seen[id] {
				return fmt.Errorf("%w: symbol %s reachable twice", ErrMalformedMap, id)
			}
			seen[id] = true

			if parent != nil {
				if s.Parent != parent.ID {
					return fmt.Errorf("%w: %s %q has parent %s, listed under %s", ErrMalformedMap, s.Kind, s.Name, s.Parent, parent.ID)
				}
				if !parent.Span.Contains(s.Span) {
					return fmt.Errorf("%w: %s %q %s escapes parent %q %s", ErrMalformedMap, s.Kind, s.Name, s.Span, parent.Name, parent.Span)
				}
			} else if s.Parent != "" {
				return fmt.Errorf("%w: root %s %q has parent %s", ErrMalformedMap, s.Kind, s.Name, s.Parent)
			}

			if prev != nil && prev.Span.EndByte > s.Span.StartByte {
				return fmt.Errorf("%w: siblings %q %s and %q %s overlap", ErrMalformedMap, prev.Name, prev.Span, s.Name, s.Span)
			}
			prev = s

			if err := check(s, s.Children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := check(nil, m.Roots); err != nil {
		return err
	}
	if len(seen) != len(m.Symbols) {
		return fmt.Errorf("%w: %d symbols unreachable from roots", ErrMalformedMap, len(m.Symbols)-len(seen))
	}
	return nil
}
