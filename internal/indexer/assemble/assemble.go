// Package assemble builds the nested symbol tree of a file from normalized
// symbol drafts using span containment.
package assemble

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// idNamespace scopes symbol ids generated by this package.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/mvp-joe/symmap/symbol"))

// Input is everything needed to assemble one FileMap.
type Input struct {
	FileID      string
	Fingerprint string
	Language    string
	// Symbols are drafts in declaration order. Links are reassigned. A draft
	// that already carries an id keeps it unless an earlier draft claimed it.
	Symbols     []*symbols.Symbol
	Diagnostics []symbols.Diagnostic
	// Previous is the earlier map of the same file, if any. Drafts without
	// an id take over the id of the matching symbol in Previous, and no
	// draft is given an id that Previous used for a symbol it did not match.
	Previous *symbols.FileMap
}

// Assemble links drafts into a tree. The parent of a symbol is the nearest
// preceding symbol whose span has not ended before it starts. If the result
// breaks the containment invariant the map is returned degraded, with a
// MalformedMap diagnostic and every symbol as a root.
//
// The drafts are owned by the returned map.
func Assemble(in Input) *symbols.FileMap {
	m := symbols.NewFileMap(in.FileID, in.Fingerprint, in.Language)
	if len(in.Diagnostics) > 0 {
		m.Diagnostics = append([]symbols.Diagnostic(nil), in.Diagnostics...)
	}

	ordered := make([]*symbols.Symbol, len(in.Symbols))
	copy(ordered, in.Symbols)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Span.StartByte < ordered[j].Span.StartByte
	})

	type node struct {
		sym      *symbols.Symbol
		children []*node
	}
	var roots []*node
	var stack []*node
	for _, s := range ordered {
		for len(stack) > 0 && stack[len(stack)-1].sym.Span.EndByte <= s.Span.StartByte {
			stack = stack[:len(stack)-1]
		}
		n := &node{sym: s}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			top := stack[len(stack)-1]
			top.children = append(top.children, n)
		}
		stack = append(stack, n)
	}

	preset := make([]symbols.ID, len(ordered))
	for i, s := range ordered {
		preset[i] = s.ID
	}

	ids := newIDAssigner(in.FileID, in.Previous)
	var link func(parent *symbols.Symbol, path string, nodes []*node) []symbols.ID
	link = func(parent *symbols.Symbol, path string, nodes []*node) []symbols.ID {
		var parentID symbols.ID
		if parent != nil {
			parentID = parent.ID
		}
		group := make([]*symbols.Symbol, len(nodes))
		for i, n := range nodes {
			group[i] = n.sym
		}
		paths := ids.assign(parentID, path, group)

		out := make([]symbols.ID, 0, len(nodes))
		for i, n := range nodes {
			s := n.sym
			s.Parent = parentID
			s.Children = link(s, paths[i]+"/", n.children)
			s.Compact()
			m.Symbols[s.ID] = s
			out = append(out, s.ID)
		}
		return out
	}
	m.Roots = link(nil, "", roots)

	if err := m.Validate(); err != nil {
		flat := symbols.NewFileMap(in.FileID, in.Fingerprint, in.Language)
		flat.Diagnostics = append(m.Diagnostics, symbols.Diagnostic{
			Kind:    symbols.DiagMalformedMap,
			Message: err.Error(),
		})
		flat.Degraded = true
		for i, s := range ordered {
			s.ID = preset[i]
			s.Parent = ""
			s.Children = nil
		}
		newIDAssigner(in.FileID, in.Previous).assign("", "", ordered)
		for _, s := range ordered {
			flat.Symbols[s.ID] = s
			flat.Roots = append(flat.Roots, s.ID)
		}
		return flat
	}
	return m
}

// idAssigner hands out the ids of one map. An id is kept from the draft,
// taken over from the previous map, or derived from the qualified path, in
// that order of preference.
type idAssigner struct {
	fileID string
	prev   *symbols.FileMap
	used   map[symbols.ID]bool
}

func newIDAssigner(fileID string, prev *symbols.FileMap) *idAssigner {
	if prev != nil && prev.FileID != fileID {
		prev = nil
	}
	return &idAssigner{fileID: fileID, prev: prev, used: make(map[symbols.ID]bool)}
}

// assign sets the ids of one sibling group and returns the qualified path
// of each member. parent is the id of the group's parent in the new map and
// path the parent's qualified path, ending in a slash.
func (a *idAssigner) assign(parent symbols.ID, path string, group []*symbols.Symbol) []string {
	paths := make([]string, len(group))
	ordinals := map[string]int{}
	for i, s := range group {
		paths[i] = path + segment(s, ordinals)
	}

	pending := make([]bool, len(group))
	for i, s := range group {
		if s.ID != "" && !a.used[s.ID] {
			a.used[s.ID] = true
			continue
		}
		pending[i] = true
	}

	// Exact matches go first so that an overload whose signature changed
	// cannot take the id of an untouched one.
	prior := a.prior(parent)
	for _, match := range []func(p, s *symbols.Symbol) bool{sameDeclaration, sameName} {
		for i, s := range group {
			if !pending[i] {
				continue
			}
			for _, p := range prior {
				if !a.used[p.ID] && match(p, s) {
					s.ID = p.ID
					a.used[p.ID] = true
					pending[i] = false
					break
				}
			}
		}
	}

	for i, s := range group {
		if !pending[i] {
			continue
		}
		id := symbolID(a.fileID, paths[i])
		for n := 1; a.taken(id); n++ {
			id = symbolID(a.fileID, paths[i]+"~"+strconv.Itoa(n))
		}
		s.ID = id
		a.used[id] = true
	}
	return paths
}

// prior returns the children of parent in the previous map, or its roots
// when parent is empty.
func (a *idAssigner) prior(parent symbols.ID) []*symbols.Symbol {
	if a.prev == nil {
		return nil
	}
	ids := a.prev.Roots
	if parent != "" {
		p, ok := a.prev.Symbols[parent]
		if !ok {
			return nil
		}
		ids = p.Children
	}
	out := make([]*symbols.Symbol, 0, len(ids))
	for _, id := range ids {
		if s, ok := a.prev.Symbols[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (a *idAssigner) taken(id symbols.ID) bool {
	if a.used[id] {
		return true
	}
	if a.prev == nil {
		return false
	}
	_, ok := a.prev.Symbols[id]
	return ok
}

func sameDeclaration(p, s *symbols.Symbol) bool {
	return p.Kind == s.Kind && p.Name == s.Name && p.Signature == s.Signature
}

func sameName(p, s *symbols.Symbol) bool {
	return p.Kind == s.Kind && p.Name == s.Name
}

// segment renders one path step as kind:name#ordinal, counting same-kind
// same-name siblings.
func segment(s *symbols.Symbol, ordinals map[string]int) string {
	key := string(s.Kind) + ":" + s.Name
	n := ordinals[key]
	ordinals[key] = n + 1
	return key + "#" + strconv.Itoa(n)
}

func symbolID(fileID, path string) symbols.ID {
	return symbols.ID(uuid.NewSHA1(idNamespace, []byte(fileID+"\x00"+path)).String())
}

// QualifiedPath returns the kind:name#ordinal chain of a symbol in m. A
// symbol assembled without a previous map has the id derived from it.
func QualifiedPath(m *symbols.FileMap, id symbols.ID) string {
	var parts []string
	for id != "" {
		s, ok := m.Symbols[id]
		if !ok {
			return ""
		}
		siblings := m.Roots
		if s.Parent != "" {
			if p, ok := m.Symbols[s.Parent]; ok {
				siblings = p.Children
			}
		}
		ordinal := 0
		for _, sib := range siblings {
			if sib == id {
				break
			}
			if o := m.Symbols[sib]; o != nil && o.Kind == s.Kind && o.Name == s.Name {
				ordinal++
			}
		}
		parts = append(parts, string(s.Kind)+":"+s.Name+"#"+strconv.Itoa(ordinal))
		id = s.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
