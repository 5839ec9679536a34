package parsers

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// treeSitterParser adapts one tree-sitter grammar. A new sitter.Parser is
// created per call because parsers are not safe for concurrent use.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
	fallback *treeSitterParser // Used when the primary grammar rejects the whole file
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// withFallback sets a grammar to retry with when the root node is an error.
func (p *treeSitterParser) withFallback(fb *treeSitterParser) *treeSitterParser {
	p.fallback = fb
	return p
}

func (p *treeSitterParser) Language() string {
	return p.lang
}

// Parse parses source with the primary grammar, then the fallback grammar if
// the primary one could not make sense of the file at all.
func (p *treeSitterParser) Parse(ctx context.Context, src []byte) (Tree, error) {
	tree, err := p.parse(ctx, src, nil)
	if err != nil {
		return nil, err
	}
	if !tree.root().IsError() || p.fallback == nil {
		return tree, nil
	}

	fbTree, err := p.fallback.parse(ctx, src, nil)
	if err != nil || fbTree.root().IsError() {
		if fbTree != nil {
			fbTree.Close()
		}
		return tree, nil
	}
	tree.Close()
	return fbTree, nil
}

func (p *treeSitterParser) parse(ctx context.Context, src []byte, old *sitter.Tree) (*tsTree, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set %s language: %w", p.lang, err)
	}

	tree := parser.ParseCtx(ctx, src, old)
	if tree == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse %s source", p.lang)
	}

	return &tsTree{tree: tree, src: src, lang: p.lang, parser: p}, nil
}

// Reparse applies edits to a copy of the old tree and parses the new content
// incrementally. The old tree is left untouched.
func (p *treeSitterParser) Reparse(ctx context.Context, old Tree, src []byte, edits []Edit) (Tree, []symbols.Span, error) {
	prev, ok := old.(*tsTree)
	if !ok || prev.parser != p {
		return nil, nil, fmt.Errorf("reparse %s: tree was not produced by this parser", p.lang)
	}

	sorted, err := SortEdits(edits, len(prev.src))
	if err != nil {
		return nil, nil, fmt.Errorf("reparse %s: %w", p.lang, err)
	}

	edited := prev.tree.Clone()
	defer edited.Close()

	oldIndex := symbols.NewLineIndex(prev.src)
	// Apply back to front so each edit's old coordinates are still valid.
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		start := oldIndex.Point(e.StartByte)
		edited.Edit(&sitter.InputEdit{
			StartByte:      uint(e.StartByte),
			OldEndByte:     uint(e.OldEndByte),
			NewEndByte:     uint(e.StartByte + len(e.NewText)),
			StartPosition:  toSitterPoint(start),
			OldEndPosition: toSitterPoint(oldIndex.Point(e.OldEndByte)),
			NewEndPosition: toSitterPoint(advance(start, e.NewText)),
		})
	}

	next, err := p.parse(ctx, src, edited)
	if err != nil {
		return nil, nil, err
	}

	newIndex := symbols.NewLineIndex(src)
	changed := EditedSpans(sorted, newIndex)
	for _, r := range edited.ChangedRanges(next.tree) {
		changed = append(changed, newIndex.Span(int(r.StartByte), int(r.EndByte)))
	}

	return next, changed, nil
}

// advance returns the point reached after writing text starting at p.
func advance(p symbols.Point, text string) symbols.Point {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			p.Line++
			p.Column = 0
		} else {
			p.Column++
		}
	}
	return p
}

func toSitterPoint(p symbols.Point) sitter.Point {
	return sitter.Point{Row: uint(p.Line), Column: uint(p.Column)}
}

// tsTree owns a tree-sitter tree. Clone and Close may race with readers of
// other clones, never with readers of the same tree.
type tsTree struct {
	mu     sync.Mutex
	tree   *sitter.Tree
	src    []byte
	lang   string
	parser *treeSitterParser
}

func (t *tsTree) root() *sitter.Node {
	return t.tree.RootNode()
}

func (t *tsTree) Root() Node {
	return newTSNode(t.tree.RootNode(), t.src)
}

func (t *tsTree) Source() []byte {
	return t.src
}

func (t *tsTree) Language() string {
	return t.lang
}

// Clone returns an independent handle to the same tree. Returns nil if the
// tree was already closed.
func (t *tsTree) Clone() Tree {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tree == nil {
		return nil
	}
	return &tsTree{tree: t.tree.Clone(), src: t.src, lang: t.lang, parser: t.parser}
}

func (t *tsTree) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// tsNode wraps a tree-sitter node together with the source it was parsed from.
type tsNode struct {
	node *sitter.Node
	src  []byte
}

func newTSNode(n *sitter.Node, src []byte) Node {
	if n == nil {
		return nil
	}
	return &tsNode{node: n, src: src}
}

func (n *tsNode) Kind() string {
	return n.node.Kind()
}

func (n *tsNode) Span() symbols.Span {
	start, end := n.node.StartPosition(), n.node.EndPosition()
	return symbols.Span{
		StartByte: int(n.node.StartByte()),
		EndByte:   int(n.node.EndByte()),
		Start:     symbols.Point{Line: int(start.Row), Column: int(start.Column)},
		End:       symbols.Point{Line: int(end.Row), Column: int(end.Column)},
	}
}

// Text extracts the text content of the node.
func (n *tsNode) Text() string {
	return n.node.Utf8Text(n.src)
}

func (n *tsNode) Children() []Node {
	count := n.node.ChildCount()
	out := make([]Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.node.Child(i); c != nil {
			out = append(out, &tsNode{node: c, src: n.src})
		}
	}
	return out
}

func (n *tsNode) NamedChildren() []Node {
	count := n.node.NamedChildCount()
	out := make([]Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.node.NamedChild(i); c != nil {
			out = append(out, &tsNode{node: c, src: n.src})
		}
	}
	return out
}

func (n *tsNode) Field(name string) Node {
	return newTSNode(n.node.ChildByFieldName(name), n.src)
}

func (n *tsNode) FieldChildren(name string) []Node {
	var out []Node
	count := n.node.ChildCount()
	for i := uint(0); i < count; i++ {
		if n.node.FieldNameForChild(uint32(i)) != name {
			continue
		}
		if c := n.node.Child(i); c != nil {
			out = append(out, &tsNode{node: c, src: n.src})
		}
	}
	return out
}

func (n *tsNode) IsNamed() bool {
	return n.node.IsNamed()
}

func (n *tsNode) IsError() bool {
	return n.node.IsError()
}

func (n *tsNode) IsMissing() bool {
	return n.node.IsMissing()
}
