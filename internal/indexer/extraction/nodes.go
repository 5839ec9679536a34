package extraction

import (
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

const maxSignatureLen = 200

// find resolves a ref: a field name, falling back to the first child of
// that kind, with "/" separating nested steps.
func find(n parsers.Node, ref string) parsers.Node {
	if n == nil || ref == "" {
		return nil
	}
	for _, part := range strings.Split(ref, "/") {
		n = findOne(n, part)
		if n == nil {
			return nil
		}
	}
	return n
}

func findOne(n parsers.Node, part string) parsers.Node {
	if c := n.Field(part); c != nil {
		return c
	}
	for _, c := range n.Children() {
		if c.Kind() == part {
			return c
		}
	}
	return nil
}

// findAll resolves every node matching the last step of a ref.
func findAll(n parsers.Node, ref string) []parsers.Node {
	if n == nil || ref == "" {
		return nil
	}
	parts := strings.Split(ref, "/")
	for _, part := range parts[:len(parts)-1] {
		n = findOne(n, part)
		if n == nil {
			return nil
		}
	}
	last := parts[len(parts)-1]
	if cs := n.FieldChildren(last); len(cs) > 0 {
		return cs
	}
	var out []parsers.Node
	for _, c := range n.Children() {
		if c.Kind() == last {
			out = append(out, c)
		}
	}
	return out
}

// resolveName follows refs repeatedly and returns the innermost node. When
// required is set the first step must succeed.
func resolveName(n parsers.Node, refs []string, required bool) parsers.Node {
	first := true
	for {
		var next parsers.Node
		for _, ref := range refs {
			if next = find(n, ref); next != nil {
				break
			}
		}
		if next == nil {
			if first && required {
				return nil
			}
			return n
		}
		n, first = next, false
	}
}

// chainKinds lists the kinds of every node visited by resolveName.
func chainKinds(n parsers.Node, refs []string) []string {
	kinds := []string{n.Kind()}
	for {
		var next parsers.Node
		for _, ref := range refs {
			if next = find(n, ref); next != nil {
				break
			}
		}
		if next == nil {
			return kinds
		}
		n = next
		kinds = append(kinds, n.Kind())
	}
}

func textOf(n parsers.Node) string {
	if n == nil {
		return ""
	}
	return collapse(n.Text())
}

// collapse joins whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// trimHeader removes trailing body openers and terminators from a header.
func trimHeader(s string) string {
	for {
		s = strings.TrimSpace(s)
		trimmed := s
		for _, suffix := range []string{"=>", "{", ";", ":", "="} {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == s {
			break
		}
		s = trimmed
	}
	if len(s) > maxSignatureLen {
		cut := maxSignatureLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func sameNode(a, b parsers.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind() == b.Kind() && a.Span().StartByte == b.Span().StartByte && a.Span().EndByte == b.Span().EndByte
}
