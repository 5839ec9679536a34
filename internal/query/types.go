package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mvp-joe/symmap/internal/symbols"
)

var (
	// ErrSymbolNotFound is returned by Expand for an id not in the map.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrInvalidPattern is returned by FindByName for a malformed glob.
	ErrInvalidPattern = errors.New("invalid name pattern")

	// ErrInvalidPosition is returned by ParsePosition.
	ErrInvalidPosition = errors.New("invalid position")
)

// OutlineOptions controls recursive expansion.
type OutlineOptions struct {
	MaxDepth     int  // Levels to expand below each listed symbol; 0 means unlimited
	IncludeLocal bool // Include symbols declared inside executable code
}

// Position is a location in a file, either a byte offset or a point.
type Position struct {
	Offset  int
	Point   symbols.Point
	ByPoint bool
}

// AtOffset is the position of a byte offset.
func AtOffset(off int) Position {
	return Position{Offset: off}
}

// AtLine is the position of a one-based line and column.
func AtLine(line, column int) Position {
	return Position{Point: symbols.Point{Line: line - 1, Column: column - 1}, ByPoint: true}
}

// ParsePosition accepts "line:column" (one-based) or a byte offset.
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if line, col, ok := strings.Cut(s, ":"); ok {
		l, err1 := strconv.Atoi(line)
		c, err2 := strconv.Atoi(col)
		if err1 != nil || err2 != nil || l < 1 || c < 1 {
			return Position{}, fmt.Errorf("%w: %q (want line:column, both from 1)", ErrInvalidPosition, s)
		}
		return AtLine(l, c), nil
	}
	off, err := strconv.Atoi(s)
	if err != nil || off < 0 {
		return Position{}, fmt.Errorf("%w: %q (want line:column or a byte offset)", ErrInvalidPosition, s)
	}
	return AtOffset(off), nil
}

func (p Position) String() string {
	if p.ByPoint {
		return p.Point.String()
	}
	return "@" + strconv.Itoa(p.Offset)
}

// within reports whether p falls inside span.
func (p Position) within(span symbols.Span) bool {
	if !p.ByPoint {
		return span.ContainsOffset(p.Offset)
	}
	return !p.Point.Less(span.Start) && p.Point.Less(span.End)
}

// SymbolView is a read-only copy of a symbol with its expanded children.
// It shares nothing with the cached map.
type SymbolView struct {
	ID          symbols.ID                 `json:"id"`
	Kind        symbols.Kind               `json:"kind"`
	Name        string                     `json:"name"`
	Headline    string                     `json:"headline"`
	Signature   string                     `json:"signature,omitempty"`
	Modifiers   symbols.Modifiers          `json:"modifiers"`
	Generics    []symbols.GenericParameter `json:"generics,omitempty"`
	Annotations []symbols.Annotation       `json:"annotations,omitempty"`
	Extends     []symbols.TypeRef          `json:"extends,omitempty"`
	Implements  []symbols.TypeRef          `json:"implements,omitempty"`
	Arguments   []string                   `json:"arguments,omitempty"`
	Extra       map[string]string          `json:"extra,omitempty"`
	Span        symbols.Span               `json:"span"`
	Parent      symbols.ID                 `json:"parent,omitempty"`
	Local       bool                       `json:"local,omitempty"`
	Children    []*SymbolView              `json:"children,omitempty"`
	HasMore     bool                       `json:"has_more,omitempty"` // Children cut off by MaxDepth
}

func newView(s *symbols.Symbol) *SymbolView {
	c := s.Clone()
	return &SymbolView{
		ID:          c.ID,
		Kind:        c.Kind,
		Name:        c.Name,
		Headline:    symbols.Headline(c),
		Signature:   c.Signature,
		Modifiers:   c.Modifiers,
		Generics:    c.Generics,
		Annotations: c.Annotations,
		Extends:     c.Extends,
		Implements:  c.Implements,
		Arguments:   c.Arguments,
		Extra:       c.Extra,
		Span:        c.Span,
		Parent:      c.Parent,
		Local:       c.Local,
	}
}

// Meta describes the map a result was computed from.
type Meta struct {
	FileID      string               `json:"file_id"`
	Fingerprint string               `json:"fingerprint"`
	Language    string               `json:"language"`
	State       string               `json:"state"`
	Stale       bool                 `json:"stale,omitempty"`    // Built from older content than last seen
	Degraded    bool                 `json:"degraded,omitempty"` // Flat root list after a containment failure
	Diagnostics []symbols.Diagnostic `json:"diagnostics,omitempty"`
}

// OutlineResult is the answer to Outline and Expand.
type OutlineResult struct {
	Meta
	Symbols []*SymbolView `json:"symbols"`
}

// LookupResult is the answer to Lookup. Symbol is nil when no symbol
// contains the position.
type LookupResult struct {
	Meta
	Position string      `json:"position"`
	Symbol   *SymbolView `json:"symbol,omitempty"`
	Path     []string    `json:"path,omitempty"` // Names from the root down to Symbol
}

// FindResult is the answer to FindByName, in document order.
type FindResult struct {
	Meta
	Pattern string        `json:"pattern"`
	Matches []*SymbolView `json:"matches"`
}
