package normalize

import (
	"strconv"
	"strings"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// ParseAnnotations parses one raw annotation usage. Attribute groups such as
// PHP "#[A, B(1)]" yield one annotation per entry.
//
//	@Tracked(value = "items")   -> Tracked {value: "items"}
//	@SuppressWarnings("x")      -> SuppressWarnings {value: "x"}
//	#[derive(Debug, Clone)]     -> derive {value: Debug, value1: Clone}
//	#[doc = "text"]             -> doc {value: "text"}
//	@app.route("/", methods=[]) -> app.route {value: "/", methods: []}
func ParseAnnotations(raw string) []symbols.Annotation {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(text, "#!["):
		text = strings.TrimSuffix(text[3:], "]")
	case strings.HasPrefix(text, "#["):
		text = strings.TrimSuffix(text[2:], "]")
	case strings.HasPrefix(text, "@"):
		return []symbols.Annotation{parseAnnotation(text[1:])}
	default:
		return []symbols.Annotation{parseAnnotation(text)}
	}

	var out []symbols.Annotation
	for _, part := range splitTopLevel(text, []string{","}) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, parseAnnotation(part))
	}
	return out
}

func parseAnnotation(text string) symbols.Annotation {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '(')
	if open < 0 {
		// Name-value attribute: doc = "text"
		if eq := assignmentAt(text); eq > 0 {
			return symbols.Annotation{
				Name: collapseName(text[:eq]),
				Args: map[string]string{"value": strings.TrimSpace(text[eq+1:])},
			}
		}
		return symbols.Annotation{Name: collapseName(text)}
	}

	a := symbols.Annotation{Name: collapseName(text[:open])}
	inner := text[open+1:]
	if end := strings.LastIndexByte(inner, ')'); end >= 0 {
		inner = inner[:end]
	}
	if strings.TrimSpace(inner) == "" {
		return a
	}

	a.Args = map[string]string{}
	positional := 0
	for _, part := range splitTopLevel(inner, []string{","}) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := namedArgAt(part); eq > 0 {
			a.Args[strings.TrimSpace(part[:eq])] = strings.TrimSpace(part[eq+1:])
			continue
		}
		key := "value"
		if positional > 0 {
			key += strconv.Itoa(positional)
		}
		a.Args[key] = part
		positional++
	}
	return a
}

// namedArgAt returns the index of the "=" or ":" after a leading identifier,
// or -1 when the argument is positional.
func namedArgAt(part string) int {
	i := 0
	for i < len(part) && isIdentByte(part[i]) {
		i++
	}
	if i == 0 {
		return -1
	}
	j := i
	for j < len(part) && (part[j] == ' ' || part[j] == '\t') {
		j++
	}
	if j >= len(part) {
		return -1
	}
	switch part[j] {
	case '=':
		if j+1 < len(part) && (part[j+1] == '=' || part[j+1] == '>') {
			return -1
		}
		return j
	case ':':
		if j+1 < len(part) && part[j+1] == ':' {
			return -1
		}
		return j
	}
	return -1
}

func assignmentAt(text string) int {
	i := namedArgAt(text)
	if i > 0 && text[i] == '=' {
		return i
	}
	return -1
}

func collapseName(s string) string {
	return strings.Join(strings.Fields(s), "")
}
