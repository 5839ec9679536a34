package parsers

import (
	"context"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Node is the uniform view of one concrete syntax tree node.
type Node interface {
	Kind() string
	Span() symbols.Span
	Text() string
	Children() []Node
	NamedChildren() []Node
	// Field returns the first child stored under a grammar field name, or nil.
	Field(name string) Node
	// FieldChildren returns every child stored under a grammar field name.
	FieldChildren(name string) []Node
	IsNamed() bool
	IsError() bool
	IsMissing() bool
}

// Tree is a parsed source file. Trees must be closed when no longer needed.
type Tree interface {
	Root() Node
	Source() []byte
	// Language is the grammar that produced the tree, which may be a fallback
	// grammar rather than the one requested.
	Language() string
	Clone() Tree
	Close()
}

// ErrorReporter is implemented by trees whose parser reports syntax errors
// out of band instead of as ERROR nodes.
type ErrorReporter interface {
	SyntaxErrors() []*symbols.SyntaxError
}

// Adapter turns source text into a Tree for one language.
type Adapter interface {
	Language() string
	Parse(ctx context.Context, src []byte) (Tree, error)
}

// IncrementalAdapter can reparse an edited file reusing a previous tree.
// It returns the new tree and the spans, in new-content coordinates, whose
// syntax may have changed.
type IncrementalAdapter interface {
	Adapter
	Reparse(ctx context.Context, old Tree, src []byte, edits []Edit) (Tree, []symbols.Span, error)
}
