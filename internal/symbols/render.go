package symbols

import (
	"fmt"
	"strings"
)

// String renders an indented outline of the map, one symbol per line.
func (m *FileMap) String() string {
	return m.Render(RenderOptions{})
}

// RenderOptions controls outline rendering.
type RenderOptions struct {
	IncludeLocal bool // Include symbols declared inside executable code
	MaxDepth     int  // 0 means unlimited
}

// Render writes the outline with the given options.
func (m *FileMap) Render(opts RenderOptions) string {
	var b strings.Builder

	if m.Degraded {
		b.WriteString("[DEGRADED MAP]\n")
	}

	m.Walk(func(s *Symbol, depth int) bool {
		if s.Local && !opts.IncludeLocal {
			return false
		}
		if depth > 0 {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("- ")
		}
		b.WriteString(Headline(s))
		b.WriteString("\n")
		return opts.MaxDepth == 0 || depth+1 < opts.MaxDepth
	})

	for _, d := range m.Diagnostics {
		fmt.Fprintf(&b, "! %s\n", d)
	}

	return b.String()
}

// Headline is the one-line form of a symbol used in outlines.
func Headline(s *Symbol) string {
	if s.Signature != "" {
		return s.Signature
	}
	parts := s.Modifiers.Tokens()
	parts = append(parts, string(s.Kind), s.Name)
	line := strings.Join(parts, " ")
	if len(s.Arguments) > 0 {
		line += "(" + strings.Join(s.Arguments, ", ") + ")"
	}
	return line
}
