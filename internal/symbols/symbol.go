package symbols

import (
	"sort"
	"strings"
)

// ID identifies a symbol within a FileMap. IDs are derived from content, so
// rebuilding unchanged content yields the same IDs.
type ID string

// Modifiers is the unified modifier vocabulary. Tokens without a mapping are
// kept verbatim in Extra.
type Modifiers struct {
	Visibility Visibility `json:"visibility,omitempty"`
	Static     bool       `json:"static,omitempty"`
	Final      bool       `json:"final,omitempty"`
	Abstract   bool       `json:"abstract,omitempty"`
	Extra      []string   `json:"extra,omitempty"`
}

// AddExtra records an unmapped token, keeping Extra sorted and unique.
func (m *Modifiers) AddExtra(token string) {
	i := sort.SearchStrings(m.Extra, token)
	if i < len(m.Extra) && m.Extra[i] == token {
		return
	}
	m.Extra = append(m.Extra, "")
	copy(m.Extra[i+1:], m.Extra[i:])
	m.Extra[i] = token
}

// HasExtra reports whether token was kept verbatim.
func (m Modifiers) HasExtra(token string) bool {
	i := sort.SearchStrings(m.Extra, token)
	return i < len(m.Extra) && m.Extra[i] == token
}

// Tokens renders the modifiers back to source-like keywords.
func (m Modifiers) Tokens() []string {
	var out []string
	if m.Visibility != VisibilityUnspecified {
		out = append(out, string(m.Visibility))
	}
	if m.Abstract {
		out = append(out, "abstract")
	}
	if m.Static {
		out = append(out, "static")
	}
	if m.Final {
		out = append(out, "final")
	}
	return append(out, m.Extra...)
}

func (m Modifiers) clone() Modifiers {
	c := m
	if m.Extra != nil {
		c.Extra = append([]string(nil), m.Extra...)
	}
	return c
}

// Wildcard marks a wildcard type argument.
type Wildcard string

const (
	WildcardNone    Wildcard = ""
	WildcardAny     Wildcard = "?"
	WildcardExtends Wildcard = "extends"
	WildcardSuper   Wildcard = "super"
)

// TypeRef is a reference to a type as written, with nested type arguments.
type TypeRef struct {
	Name     string    `json:"name,omitempty"`
	Wildcard Wildcard  `json:"wildcard,omitempty"`
	Args     []TypeRef `json:"args,omitempty"`
	Dims     int       `json:"dims,omitempty"`
}

// String renders the reference, e.g. "Comparable<? super T>" or "int[]".
func (t TypeRef) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder) {
	switch t.Wildcard {
	case WildcardAny:
		b.WriteString("?")
		return
	case WildcardExtends:
		b.WriteString("? extends ")
	case WildcardSuper:
		b.WriteString("? super ")
	}
	b.WriteString(t.Name)
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b)
		}
		b.WriteByte('>')
	}
	for i := 0; i < t.Dims; i++ {
		b.WriteString("[]")
	}
}

func cloneRefs(refs []TypeRef) []TypeRef {
	if refs == nil {
		return nil
	}
	out := make([]TypeRef, len(refs))
	for i, r := range refs {
		out[i] = r
		out[i].Args = cloneRefs(r.Args)
	}
	return out
}

// GenericParameter is one type parameter with its bounds.
type GenericParameter struct {
	Name    string    `json:"name"`
	Bounds  []TypeRef `json:"bounds,omitempty"`
	Default string    `json:"default,omitempty"`
}

func (g GenericParameter) String() string {
	if len(g.Bounds) == 0 {
		return g.Name
	}
	parts := make([]string, len(g.Bounds))
	for i, b := range g.Bounds {
		parts[i] = b.String()
	}
	return g.Name + " extends " + strings.Join(parts, " & ")
}

// Annotation is an annotation, attribute or decorator applied to a symbol.
// Positional arguments are named "value", "value1", "value2" and so on.
type Annotation struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// Symbol is the unified declaration node.
type Symbol struct {
	ID          ID                 `json:"id"`
	Kind        Kind               `json:"kind"`
	Name        string             `json:"name"`
	Signature   string             `json:"signature,omitempty"`
	Modifiers   Modifiers          `json:"modifiers"`
	Generics    []GenericParameter `json:"generics,omitempty"`
	Annotations []Annotation       `json:"annotations,omitempty"`
	Extends     []TypeRef          `json:"extends,omitempty"`
	Implements  []TypeRef          `json:"implements,omitempty"`
	Arguments   []string           `json:"arguments,omitempty"`
	Extra       map[string]string  `json:"extra,omitempty"`
	Span        Span               `json:"span"`
	Children    []ID               `json:"children,omitempty"`
	Parent      ID                 `json:"parent,omitempty"`
	Local       bool               `json:"local,omitempty"`
}

// IsRoot reports whether the symbol is a top-level declaration.
func (s *Symbol) IsRoot() bool {
	return s.Parent == ""
}

// HasAnnotation reports whether an annotation with the given name is applied.
func (s *Symbol) HasAnnotation(name string) bool {
	for _, a := range s.Annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Symbol) Clone() *Symbol {
	c := *s
	c.Modifiers = s.Modifiers.clone()
	c.Extends = cloneRefs(s.Extends)
	c.Implements = cloneRefs(s.Implements)
	if s.Generics != nil {
		c.Generics = make([]GenericParameter, len(s.Generics))
		for i, g := range s.Generics {
			c.Generics[i] = g
			c.Generics[i].Bounds = cloneRefs(g.Bounds)
		}
	}
	if s.Annotations != nil {
		c.Annotations = make([]Annotation, len(s.Annotations))
		for i, a := range s.Annotations {
			c.Annotations[i] = Annotation{Name: a.Name}
			if a.Args != nil {
				c.Annotations[i].Args = make(map[string]string, len(a.Args))
				for k, v := range a.Args {
					c.Annotations[i].Args[k] = v
				}
			}
		}
	}
	if s.Arguments != nil {
		c.Arguments = append([]string(nil), s.Arguments...)
	}
	if s.Extra != nil {
		c.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	if s.Children != nil {
		c.Children = append([]ID(nil), s.Children...)
	}
	return &c
}

// Compact replaces empty collections with nil so encoded maps round-trip exactly.
func (s *Symbol) Compact() {
	if len(s.Modifiers.Extra) == 0 {
		s.Modifiers.Extra = nil
	}
	if len(s.Generics) == 0 {
		s.Generics = nil
	}
	for i := range s.Generics {
		if len(s.Generics[i].Bounds) == 0 {
			s.Generics[i].Bounds = nil
		}
	}
	if len(s.Annotations) == 0 {
		s.Annotations = nil
	}
	for i := range s.Annotations {
		if len(s.Annotations[i].Args) == 0 {
			s.Annotations[i].Args = nil
		}
	}
	if len(s.Extends) == 0 {
		s.Extends = nil
	}
	if len(s.Implements) == 0 {
		s.Implements = nil
	}
	if len(s.Arguments) == 0 {
		s.Arguments = nil
	}
	if len(s.Extra) == 0 {
		s.Extra = nil
	}
	if len(s.Children) == 0 {
		s.Children = nil
	}
}
