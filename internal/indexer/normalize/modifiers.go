package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// effect is what one modifier token contributes to the unified flags.
type effect struct {
	Visibility symbols.Visibility
	Static     bool
	Final      bool
	Abstract   bool
}

// ModifierTable maps raw tokens to flags. Tokens without an entry are kept
// verbatim in Modifiers.Extra.
type ModifierTable map[string]effect

var (
	public    = effect{Visibility: symbols.VisibilityPublic}
	protected = effect{Visibility: symbols.VisibilityProtected}
	private   = effect{Visibility: symbols.VisibilityPrivate}
	pkg       = effect{Visibility: symbols.VisibilityPackage}
	static    = effect{Static: true}
	final     = effect{Final: true}
	abstract  = effect{Abstract: true}
)

var (
	javaModifiers = ModifierTable{
		"public": public, "protected": protected, "private": private,
		"static": static, "final": final, "abstract": abstract,
	}
	typescriptModifiers = ModifierTable{
		"public": public, "protected": protected, "private": private,
		"export": public, "static": static, "abstract": abstract,
		"readonly": final, "const": final,
	}
	pythonModifiers = ModifierTable{}
	rustModifiers   = ModifierTable{
		"pub": public, "pub(crate)": pkg, "pub(super)": pkg, "pub(self)": private,
		"static": static, "const": final,
	}
	cModifiers = ModifierTable{
		"static": static, "const": final,
	}
	phpModifiers = ModifierTable{
		"public": public, "protected": protected, "private": private, "var": public,
		"static": static, "final": final, "abstract": abstract, "readonly": final,
	}
	rubyModifiers = ModifierTable{
		"static": static,
	}
	goModifiers       = ModifierTable{}
	markdownModifiers = ModifierTable{}
)

// lookup finds the entry for a token, folding case and inner whitespace
// ("pub (crate)", "PUBLIC") and Rust "pub(in path)" restrictions.
func (t ModifierTable) lookup(token string) (effect, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(token), ""))
	if e, ok := t[key]; ok {
		return e, true
	}
	if strings.HasPrefix(key, "pub(in") {
		e, ok := t["pub(crate)"]
		return e, ok
	}
	return effect{}, false
}

// Apply maps every token. A token that would overwrite an already mapped
// visibility with a different one is kept in Extra so no token is lost.
func (t ModifierTable) Apply(tokens []string) symbols.Modifiers {
	var m symbols.Modifiers
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		e, ok := t.lookup(tok)
		if !ok {
			m.AddExtra(tok)
			continue
		}
		if e.Visibility != symbols.VisibilityUnspecified {
			if m.Visibility != symbols.VisibilityUnspecified && m.Visibility != e.Visibility {
				m.AddExtra(tok)
				continue
			}
			m.Visibility = e.Visibility
		}
		m.Static = m.Static || e.Static
		m.Final = m.Final || e.Final
		m.Abstract = m.Abstract || e.Abstract
	}
	return m
}

// VisibilityFunc infers visibility from a name when no token states it.
type VisibilityFunc func(name string) symbols.Visibility

// goVisibility follows Go export rules.
func goVisibility(name string) symbols.Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return symbols.VisibilityPublic
	}
	return symbols.VisibilityPackage
}

// pythonVisibility treats a leading underscore as private. Dunder names are
// public protocol methods.
func pythonVisibility(name string) symbols.Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return symbols.VisibilityUnspecified
	}
	if strings.HasPrefix(name, "_") {
		return symbols.VisibilityPrivate
	}
	return symbols.VisibilityUnspecified
}
