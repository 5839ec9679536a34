// Package normalize converts raw, language-native declarations into unified
// symbol drafts using per-language rule tables.
package normalize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mvp-joe/symmap/internal/indexer/extraction"
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Extra keys written by the normalizer.
const (
	ExtraType             = "type"
	ExtraDefault          = "default"
	ExtraReceiver         = "receiver"
	ExtraUnparsedGenerics = "unparsed_generics"
	ExtraAccessor         = "accessor"
)

// Result is the outcome of normalizing one file's declarations. Symbols are
// drafts: no ids or links are assigned yet.
type Result struct {
	Symbols     []*symbols.Symbol
	Diagnostics []symbols.Diagnostic
}

// Normalizer holds the rule tables for every registered language. It is safe
// for concurrent use.
type Normalizer struct {
	mu    sync.RWMutex
	rules map[string]*LanguageRules
}

// NewNormalizer creates a normalizer with the default tables registered.
func NewNormalizer() *Normalizer {
	n := &Normalizer{rules: make(map[string]*LanguageRules)}
	for _, r := range DefaultRules() {
		n.Register(r)
	}
	return n
}

// Register adds or replaces the table for a language.
func (n *Normalizer) Register(r *LanguageRules) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rules[r.Language] = r
}

// Rules returns the table for a language, falling back to the language
// family for grammar variants.
func (n *Normalizer) Rules(language string) (*LanguageRules, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if r, ok := n.rules[language]; ok {
		return r, nil
	}
	if r, ok := n.rules[parsers.BaseLanguage(language)]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: no normalization rules for %q", symbols.ErrUnsupportedLanguage, language)
}

// Normalize maps one declaration to zero or one symbol draft. Unknown
// declarations and raw kinds without a rule produce a diagnostic instead.
func (n *Normalizer) Normalize(d *extraction.Declaration) (*symbols.Symbol, *symbols.Diagnostic) {
	if d.IsUnknown() {
		problem := d.Problem
		if problem == "" {
			problem = symbols.DiagUnknownConstruct
		}
		return nil, &symbols.Diagnostic{Kind: problem, Span: d.Span, Message: d.Message, Text: d.Text}
	}

	r, err := n.Rules(d.Language)
	if err != nil {
		return nil, &symbols.Diagnostic{Kind: symbols.DiagUnknownConstruct, Span: d.Span, Message: err.Error(), Text: d.Signature}
	}
	kind, drop, ok := r.KindFor(d.Kind, d.Name)
	if drop {
		return nil, nil
	}
	if !ok {
		return nil, &symbols.Diagnostic{
			Kind:    symbols.DiagUnknownConstruct,
			Span:    d.Span,
			Message: fmt.Sprintf("no %s rule for %s", r.Language, d.Kind),
			Text:    d.Signature,
		}
	}

	s := &symbols.Symbol{
		Kind:      kind,
		Name:      d.Name,
		Signature: d.Signature,
		Modifiers: r.Modifiers.Apply(d.Modifiers),
		Arguments: append([]string(nil), d.Arguments...),
		Span:      d.Span,
		Local:     d.Local,
		Extra:     map[string]string{},
	}
	if s.Modifiers.Visibility == symbols.VisibilityUnspecified && r.Visibility != nil {
		s.Modifiers.Visibility = r.Visibility(d.Name)
	}

	if d.TypeParams != "" {
		if !hasGrammar(r.Grammar) {
			s.Extra[ExtraUnparsedGenerics] = d.TypeParams
		} else if generics, err := ParseGenerics(d.TypeParams, r.Grammar); err != nil {
			s.Extra[ExtraUnparsedGenerics] = d.TypeParams
		} else {
			s.Generics = generics
		}
	}

	for _, raw := range d.Annotations {
		s.Annotations = append(s.Annotations, ParseAnnotations(raw)...)
	}
	s.Extends = ParseHeritage(d.Extends, r.Grammar, r.HeritageSeparators)
	s.Implements = ParseHeritage(d.Implements, r.Grammar, r.HeritageSeparators)

	if t := cleanType(d.Type); t != "" {
		s.Extra[ExtraType] = t
	}
	if d.Default != "" {
		s.Extra[ExtraDefault] = d.Default
	}
	if d.Receiver != "" {
		s.Extra[ExtraReceiver] = d.Receiver
	}

	s.Compact()
	return s, nil
}

// NormalizeAll normalizes a file's declarations in order. Cancellation is
// checked between declarations. Explicit record accessors are folded into
// their component.
func (n *Normalizer) NormalizeAll(ctx context.Context, decls []extraction.Declaration) (*Result, error) {
	res := &Result{}
	parents := make([]*symbols.Span, 0, len(decls))
	for i := range decls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, diag := n.Normalize(&decls[i])
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		}
		if s != nil {
			res.Symbols = append(res.Symbols, s)
			parents = append(parents, decls[i].ParentSpan)
		}
	}
	res.Symbols = foldAccessors(res.Symbols, parents)
	return res, nil
}

// foldAccessors drops zero-parameter methods that share a name with a
// component of their enclosing record and marks the component instead.
func foldAccessors(syms []*symbols.Symbol, parents []*symbols.Span) []*symbols.Symbol {
	type recordKey struct{ start, end int }
	components := map[recordKey]map[string]*symbols.Symbol{}
	for i, s := range syms {
		if s.Kind != symbols.KindRecordComponent || parents[i] == nil {
			continue
		}
		key := recordKey{parents[i].StartByte, parents[i].EndByte}
		if components[key] == nil {
			components[key] = map[string]*symbols.Symbol{}
		}
		components[key][s.Name] = s
	}
	if len(components) == 0 {
		return syms
	}

	out := syms[:0]
	for i, s := range syms {
		if s.Kind == symbols.KindMethod && parents[i] != nil && !s.Local {
			byName := components[recordKey{parents[i].StartByte, parents[i].EndByte}]
			if c, ok := byName[s.Name]; ok && isAccessor(s) {
				if c.Extra == nil {
					c.Extra = map[string]string{}
				}
				c.Extra[ExtraAccessor] = "explicit"
				c.Annotations = append(c.Annotations, s.Annotations...)
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func isAccessor(s *symbols.Symbol) bool {
	return len(s.Generics) == 0 && strings.Contains(s.Signature, s.Name+"()")
}

// cleanType strips annotation punctuation from declared type text
// (": string", "-> int").
func cleanType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, ":")
	t = strings.TrimPrefix(t, "->")
	return strings.Join(strings.Fields(t), " ")
}

// Languages lists the languages with registered tables.
func (n *Normalizer) Languages() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.rules))
	for lang := range n.rules {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
