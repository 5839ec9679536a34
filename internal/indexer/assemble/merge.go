package assemble

import (
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Subtree returns detached copies of a symbol and all of its descendants in
// pre-order, with spans passed through shift. The copies keep their ids;
// links are cleared so they can be reassembled.
func Subtree(m *symbols.FileMap, root symbols.ID, shift func(symbols.Span) symbols.Span) []*symbols.Symbol {
	s, ok := m.Symbols[root]
	if !ok {
		return nil
	}
	c := s.Clone()
	c.Parent, c.Children = "", nil
	if shift != nil {
		c.Span = shift(c.Span)
	}
	out := []*symbols.Symbol{c}
	for _, child := range s.Children {
		out = append(out, Subtree(m, child, shift)...)
	}
	return out
}

// Merge assembles fresh drafts together with reused subtrees from a previous
// map. A reused subtree is discarded in favour of the fresh drafts when one
// of them lies within it or crosses its boundary. A fresh draft enclosing a
// reused subtree becomes its parent. Reused symbols keep their ids.
func Merge(in Input, reused [][]*symbols.Symbol) *symbols.FileMap {
	fresh := in.Symbols
	combined := make([]*symbols.Symbol, 0, len(fresh))
	for _, tree := range reused {
		if len(tree) == 0 || conflicts(tree[0].Span, fresh) {
			continue
		}
		combined = append(combined, tree...)
	}
	in.Symbols = append(combined, fresh...)
	return Assemble(in)
}

func conflicts(span symbols.Span, syms []*symbols.Symbol) bool {
	for _, s := range syms {
		if span.Contains(s.Span) {
			return true
		}
		if span.Overlaps(s.Span) && !s.Span.Contains(span) {
			return true
		}
	}
	return false
}
