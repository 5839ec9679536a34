package normalize

import (
	"strings"

	"github.com/mvp-joe/symmap/internal/symbols"
)

var heritageKeywords = []string{"extends", "implements", "<", ":"}

// ParseHeritage turns raw heritage clauses ("extends Base<T>",
// "implements A, B", "(Base, Generic[T])", ": Clone + Debug") into type
// references. Parts the grammar cannot read are kept as plain names.
func ParseHeritage(clauses []string, g BoundGrammar, separators []string) []symbols.TypeRef {
	var out []symbols.TypeRef
	for _, clause := range clauses {
		text := strings.TrimSpace(clause)
		for _, kw := range heritageKeywords {
			if strings.HasPrefix(text, kw) && (len(kw) == 1 || len(text) == len(kw) || !isIdentByte(text[len(kw)])) {
				text = strings.TrimSpace(text[len(kw):])
				break
			}
		}
		if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
			text = text[1 : len(text)-1]
		}

		for _, part := range splitTopLevel(text, separators) {
			part = strings.TrimSpace(part)
			if part == "" || strings.HasPrefix(part, "*") || hasTopLevel(part, '=') {
				continue
			}
			out = append(out, parseTypeRef(part, g))
		}
	}
	return out
}

// parseTypeRef parses a whole reference or falls back to its text.
func parseTypeRef(text string, g BoundGrammar) symbols.TypeRef {
	p := &boundParser{g: g, src: text, toks: tokenize(text)}
	ref, err := p.typeRef()
	if err != nil || p.peek() != "" {
		return symbols.TypeRef{Name: strings.Join(strings.Fields(text), " ")}
	}
	return ref
}

// splitTopLevel splits on any separator outside brackets and quotes.
func splitTopLevel(text string, separators []string) []string {
	var parts []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '`':
			quote = c
			continue
		case '\'':
			// Unpaired quotes are Rust lifetimes.
			if strings.IndexByte(text[i+1:], '\'') >= 0 {
				quote = c
			}
			continue
		case '(', '[', '{', '<':
			depth++
			continue
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		for _, sep := range separators {
			if strings.HasPrefix(text[i:], sep) {
				parts = append(parts, text[start:i])
				start = i + len(sep)
				i += len(sep) - 1
				break
			}
		}
	}
	return append(parts, text[start:])
}

// hasTopLevel reports whether c appears outside brackets and quotes as a
// lone character (not part of "==", "=>", "<=" or ">=").
func hasTopLevel(text string, c byte) bool {
	for _, part := range splitTopLevel(text, []string{string(c)}) {
		if part != text {
			i := len(part)
			if i+1 < len(text) && (text[i+1] == '=' || text[i+1] == '>') {
				return false
			}
			return i == 0 || (text[i-1] != '=' && text[i-1] != '<' && text[i-1] != '>' && text[i-1] != '!')
		}
	}
	return false
}
