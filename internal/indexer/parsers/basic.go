package parsers

import (
	"github.com/mvp-joe/symmap/internal/symbols"
)

// BasicNode is an in-memory Node for adapters whose parser does not produce a
// tree-sitter tree.
type BasicNode struct {
	NodeKind string
	NodeSpan symbols.Span
	Content  string
	Named    bool
	Error    bool
	Missing  bool

	children []*BasicNode
	fields   []string // Field name per child, "" when none
}

// NewBasicNode creates a named node.
func NewBasicNode(kind string, span symbols.Span, text string) *BasicNode {
	return &BasicNode{NodeKind: kind, NodeSpan: span, Content: text, Named: true}
}

// Add appends a child under an optional field name and returns the parent.
func (n *BasicNode) Add(field string, child *BasicNode) *BasicNode {
	if child == nil {
		return n
	}
	n.children = append(n.children, child)
	n.fields = append(n.fields, field)
	return n
}

func (n *BasicNode) Kind() string       { return n.NodeKind }
func (n *BasicNode) Span() symbols.Span { return n.NodeSpan }
func (n *BasicNode) Text() string       { return n.Content }
func (n *BasicNode) IsNamed() bool      { return n.Named }
func (n *BasicNode) IsError() bool      { return n.Error }
func (n *BasicNode) IsMissing() bool    { return n.Missing }

func (n *BasicNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *BasicNode) NamedChildren() []Node {
	out := make([]Node, 0, len(n.children))
	for _, c := range n.children {
		if c.Named {
			out = append(out, c)
		}
	}
	return out
}

func (n *BasicNode) Field(name string) Node {
	for i, f := range n.fields {
		if f == name {
			return n.children[i]
		}
	}
	return nil
}

func (n *BasicNode) FieldChildren(name string) []Node {
	var out []Node
	for i, f := range n.fields {
		if f == name {
			out = append(out, n.children[i])
		}
	}
	return out
}

// BasicTree is a Tree over BasicNodes. Close is a no-op.
type BasicTree struct {
	RootNode *BasicNode
	Src      []byte
	Lang     string
	Errors   []*symbols.SyntaxError
}

func (t *BasicTree) Root() Node                           { return t.RootNode }
func (t *BasicTree) Source() []byte                       { return t.Src }
func (t *BasicTree) Language() string                     { return t.Lang }
func (t *BasicTree) Clone() Tree                          { return t }
func (t *BasicTree) Close()                               {}
func (t *BasicTree) SyntaxErrors() []*symbols.SyntaxError { return t.Errors }
