package normalize

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// BoundGrammar configures the shared generic-parameter grammar for one
// language. It is independent of the host language's expression grammar.
type BoundGrammar struct {
	Open, Close byte     // Parameter list and type argument delimiters
	Introducers []string // Tokens that start a bound list ("extends", ":")
	Separators  []string // Tokens between bounds ("&", "+", "|")
	Defaults    bool     // "=" default types
	Wildcards   bool     // "?", "? extends X", "? super X"
	Arrays      bool     // Trailing "[]" dimensions
	// Juxtaposed bounds follow the name directly and are shared by preceding
	// names without one ("K, V any").
	Juxtaposed bool
	// Prefixes are skipped before a parameter name ("const", "*", "**").
	Prefixes []string
}

var (
	javaGrammar = BoundGrammar{
		Open: '<', Close: '>',
		Introducers: []string{"extends"},
		Separators:  []string{"&"},
		Wildcards:   true,
		Arrays:      true,
	}
	typescriptGrammar = BoundGrammar{
		Open: '<', Close: '>',
		Introducers: []string{"extends"},
		Separators:  []string{"&", "|"},
		Defaults:    true,
		Arrays:      true,
		Prefixes:    []string{"const", "in", "out"},
	}
	rustGrammar = BoundGrammar{
		Open: '<', Close: '>',
		Introducers: []string{":"},
		Separators:  []string{"+"},
		Defaults:    true,
		Prefixes:    []string{"const"},
	}
	pythonGrammar = BoundGrammar{
		Open: '[', Close: ']',
		Introducers: []string{":"},
		Separators:  []string{"|"},
		Defaults:    true,
		Prefixes:    []string{"*", "**"},
	}
	goGrammar = BoundGrammar{
		Open: '[', Close: ']',
		Separators: []string{"|"},
		Juxtaposed: true,
	}
)

type token struct {
	text string
	pos  int
}

// tokenize splits text into identifiers (with qualifiers, lifetimes and
// "::" paths) and single punctuation tokens.
func tokenize(text string) []token {
	var out []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentByte(c) || c == '\'':
			start := i
			i++
			for i < len(text) {
				if isIdentByte(text[i]) || text[i] == '.' {
					i++
					continue
				}
				if text[i] == ':' && i+1 < len(text) && text[i+1] == ':' {
					i += 2
					continue
				}
				break
			}
			out = append(out, token{text: text[start:i], pos: start})
		case c == '*' && i+1 < len(text) && text[i+1] == '*':
			out = append(out, token{text: "**", pos: i})
			i += 2
		default:
			out = append(out, token{text: string(c), pos: i})
			i++
		}
	}
	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdent(t string) bool {
	return t != "" && (isIdentByte(t[0]) || t[0] == '\'')
}

// boundParser is a recursive descent parser over one token stream.
type boundParser struct {
	g    BoundGrammar
	src  string
	toks []token
	i    int
}

func (p *boundParser) peek() string {
	if p.i >= len(p.toks) {
		return ""
	}
	return p.toks[p.i].text
}

func (p *boundParser) next() string {
	t := p.peek()
	if t != "" {
		p.i++
	}
	return t
}

func (p *boundParser) expect(t string) error {
	if got := p.next(); got != t {
		return fmt.Errorf("expected %q, found %q", t, got)
	}
	return nil
}

func (p *boundParser) pos() int {
	if p.i >= len(p.toks) {
		return len(p.src)
	}
	return p.toks[p.i].pos
}

func contains(list []string, t string) bool {
	for _, s := range list {
		if s == t {
			return true
		}
	}
	return false
}

// ParseGenerics parses a raw parameter list such as
// "<T extends Comparable<? super T>, U>" into parameters.
func ParseGenerics(text string, g BoundGrammar) ([]symbols.GenericParameter, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	p := &boundParser{g: g, src: text, toks: tokenize(text)}
	if err := p.expect(string(g.Open)); err != nil {
		return nil, err
	}

	var params []symbols.GenericParameter
	pending := 0 // Juxtaposed names still waiting for a shared bound
	for p.peek() != string(g.Close) {
		if p.peek() == "" {
			return nil, fmt.Errorf("unterminated parameter list")
		}
		param, shared, err := p.param()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		if shared {
			for j := len(params) - 1 - pending; j < len(params)-1; j++ {
				params[j].Bounds = param.Bounds
			}
			pending = 0
		} else if g.Juxtaposed {
			pending++
		}

		if p.peek() == "," {
			p.next()
			continue
		}
		if p.peek() != string(g.Close) {
			return nil, fmt.Errorf("unexpected %q after parameter %s", p.peek(), param.Name)
		}
	}
	p.next()
	if p.peek() != "" {
		return nil, fmt.Errorf("trailing text %q", p.src[p.pos():])
	}
	return params, nil
}

// param parses one parameter. shared reports a juxtaposed bound that also
// applies to preceding names without one.
func (p *boundParser) param() (symbols.GenericParameter, bool, error) {
	var gp symbols.GenericParameter
	for contains(p.g.Prefixes, p.peek()) && p.i+1 < len(p.toks) && p.toks[p.i+1].text != "," && p.toks[p.i+1].text != string(p.g.Close) {
		p.next()
	}
	name := p.next()
	if !isIdent(name) {
		return gp, false, fmt.Errorf("expected parameter name, found %q", name)
	}
	gp.Name = name

	shared := false
	switch {
	case contains(p.g.Introducers, p.peek()):
		p.next()
		bounds, err := p.bounds()
		if err != nil {
			return gp, false, err
		}
		gp.Bounds = bounds
	case p.g.Juxtaposed && p.peek() != "," && p.peek() != string(p.g.Close) && p.peek() != "":
		bounds, err := p.bounds()
		if err != nil {
			return gp, false, err
		}
		gp.Bounds = bounds
		shared = true
	}

	if p.g.Defaults && p.peek() == "=" {
		p.next()
		start := p.pos()
		if err := p.skipValue(); err != nil {
			return gp, false, err
		}
		gp.Default = strings.TrimSpace(p.src[start:p.pos()])
	}
	return gp, shared, nil
}

func (p *boundParser) bounds() ([]symbols.TypeRef, error) {
	var out []symbols.TypeRef
	for {
		ref, err := p.typeRef()
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
		if !contains(p.g.Separators, p.peek()) {
			return out, nil
		}
		p.next()
	}
}

// typeRef parses one reference with optional wildcard, type arguments and
// array dimensions.
func (p *boundParser) typeRef() (symbols.TypeRef, error) {
	var ref symbols.TypeRef
	if p.g.Wildcards && p.peek() == "?" {
		p.next()
		switch p.peek() {
		case "extends", "super":
			ref.Wildcard = symbols.Wildcard(p.next())
		default:
			ref.Wildcard = symbols.WildcardAny
			return ref, nil
		}
	}

	var name strings.Builder
	for p.peek() == "~" || p.peek() == "&" && !contains(p.g.Separators, "&") {
		name.WriteString(p.next())
	}
	first := p.next()
	if !isIdent(first) {
		return ref, fmt.Errorf("expected type name, found %q", first)
	}
	name.WriteString(first)
	// Keyword prefixes such as "keyof T" or "dyn Trait".
	for isIdent(p.peek()) && !contains(p.g.Introducers, p.peek()) && !contains(p.g.Separators, p.peek()) && isTypeKeyword(first) {
		first = p.next()
		name.WriteString(" " + first)
	}
	ref.Name = name.String()

	if p.peek() == string(p.g.Open) {
		p.next()
		for {
			arg, err := p.typeRef()
			if err != nil {
				return ref, err
			}
			ref.Args = append(ref.Args, arg)
			if p.peek() == "," {
				p.next()
				continue
			}
			if err := p.expect(string(p.g.Close)); err != nil {
				return ref, err
			}
			break
		}
	}

	for p.g.Arrays && p.peek() == "[" && p.i+1 < len(p.toks) && p.toks[p.i+1].text == "]" {
		p.next()
		p.next()
		ref.Dims++
	}
	return ref, nil
}

func isTypeKeyword(t string) bool {
	switch t {
	case "keyof", "typeof", "readonly", "unique", "dyn", "impl", "mut", "const", "unsafe":
		return true
	}
	return false
}

// skipValue consumes a default value up to the next top-level separator.
func (p *boundParser) skipValue() error {
	depth := 0
	for {
		t := p.peek()
		if t == "" {
			return fmt.Errorf("unterminated default value")
		}
		if depth == 0 && (t == "," || t == string(p.g.Close)) {
			return nil
		}
		switch t {
		case "(", "[", "{", string(p.g.Open):
			depth++
		case ")", "]", "}", string(p.g.Close):
			depth--
		}
		p.next()
	}
}
