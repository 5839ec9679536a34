package extraction

import (
	"github.com/mvp-joe/symmap/internal/symbols"
)

// KindUnknown tags a node the extractor could not classify. Its raw text is
// preserved in Declaration.Text.
const KindUnknown = "unknown"

// Declaration is one raw, language-native declaration found in a syntax tree.
// Declarations are produced in document (pre-order) order.
type Declaration struct {
	Language string
	Kind     string // Native kind tag, e.g. "class_declaration", or KindUnknown
	Name     string
	Span     symbols.Span
	// ParentSpan is the span of the nearest enclosing declaration node, nil
	// for top-level declarations.
	ParentSpan *symbols.Span

	Modifiers   []string // Raw modifier tokens in source order
	TypeParams  string   // Raw generic parameter list including delimiters
	Annotations []string // Raw annotation, attribute or decorator usages
	Extends     []string // Raw heritage clauses
	Implements  []string
	Arguments   []string // Enum constant constructor arguments, verbatim

	Signature string // Header text up to the body, whitespace collapsed
	Type      string // Declared field type or return type
	Default   string // Default or assigned value
	Receiver  string

	// Local is set for declarations inside executable code.
	Local bool

	// Text, Problem and Message describe KindUnknown declarations.
	Text    string
	Problem symbols.DiagnosticKind
	Message string
}

// IsUnknown reports whether the declaration is an unclassified node.
func (d *Declaration) IsUnknown() bool {
	return d.Kind == KindUnknown
}
