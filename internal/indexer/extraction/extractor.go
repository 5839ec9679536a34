package extraction

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Extractor walks syntax trees and emits raw declarations using per-language
// tables.
type Extractor struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec
}

// NewExtractor creates an extractor with the tables for every shipped language.
func NewExtractor() *Extractor {
	e := &Extractor{specs: make(map[string]*LanguageSpec)}
	for _, spec := range DefaultSpecs() {
		e.Register(spec)
	}
	return e
}

// Register adds or replaces the table for spec.Language.
func (e *Extractor) Register(spec *LanguageSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.specs[spec.Language] = spec
}

// Spec returns the table used for a language, following grammar families.
func (e *Extractor) Spec(language string) (*LanguageSpec, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if spec, ok := e.specs[language]; ok {
		return spec, nil
	}
	if spec, ok := e.specs[parsers.BaseLanguage(language)]; ok {
		return spec, nil
	}
	return nil, fmt.Errorf("no extraction table for %q: %w", language, symbols.ErrUnsupportedLanguage)
}

// Languages returns the languages with a registered table.
func (e *Extractor) Languages() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.specs))
	for lang := range e.specs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Extract returns every declaration in the tree in document order. Syntax
// errors become KindUnknown declarations; extraction only fails when the
// language is unsupported or ctx is cancelled.
func (e *Extractor) Extract(ctx context.Context, tree parsers.Tree) ([]Declaration, error) {
	w, err := e.walker(ctx, tree)
	if err != nil {
		return nil, err
	}

	root := tree.Root()
	if err := w.top(root, root.Children()); err != nil {
		return nil, err
	}
	w.reportedErrors(tree, false, nil)
	return w.out, nil
}

// RangeResult is the outcome of a range extraction.
type RangeResult struct {
	Declarations []Declaration
	// Covered are the spans of the top-level nodes visited.
	Covered []symbols.Span
	// Skipped are the reuse spans a declaration was found at.
	Skipped []symbols.Span
}

// ExtractRange extracts only the top-level nodes overlapping spans.
// Leading annotations are visited together with the declaration they
// decorate. A declaration whose span equals one of reuse is skipped
// together with its contents; the caller keeps its previous symbols.
func (e *Extractor) ExtractRange(ctx context.Context, tree parsers.Tree, spans, reuse []symbols.Span) (*RangeResult, error) {
	w, err := e.walker(ctx, tree)
	if err != nil {
		return nil, err
	}
	if len(reuse) > 0 {
		w.skip = make(map[[2]int]bool, len(reuse))
		for _, s := range reuse {
			w.skip[[2]int{s.StartByte, s.EndByte}] = false
		}
	}

	root := tree.Root()
	var selected []parsers.Node
	res := &RangeResult{}
	for _, group := range w.groups(root.Children()) {
		if !groupOverlaps(group, spans) {
			continue
		}
		selected = append(selected, group...)
		for _, n := range group {
			res.Covered = append(res.Covered, n.Span())
		}
	}

	if err := w.top(root, selected); err != nil {
		return nil, err
	}
	w.reportedErrors(tree, true, res.Covered)
	res.Declarations = w.out
	for _, s := range reuse {
		if w.skip[[2]int{s.StartByte, s.EndByte}] {
			res.Skipped = append(res.Skipped, s)
		}
	}
	return res, nil
}

func (e *Extractor) walker(ctx context.Context, tree parsers.Tree) (*walker, error) {
	if tree == nil || tree.Root() == nil {
		return nil, fmt.Errorf("failed to extract declarations: empty tree")
	}
	spec, err := e.Spec(tree.Language())
	if err != nil {
		return nil, err
	}
	return &walker{ctx: ctx, spec: spec, lang: tree.Language(), src: tree.Source()}, nil
}

// groups splits top-level nodes into runs of leading annotations followed
// by the node they decorate.
func (w *walker) groups(nodes []parsers.Node) [][]parsers.Node {
	var out [][]parsers.Node
	var cur []parsers.Node
	for _, n := range nodes {
		cur = append(cur, n)
		if w.spec.LeadingAnnotationKinds[n.Kind()] || w.spec.CommentKinds[n.Kind()] {
			continue
		}
		out = append(out, cur)
		cur = nil
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func groupOverlaps(group []parsers.Node, spans []symbols.Span) bool {
	for _, n := range group {
		ns := n.Span()
		for _, s := range spans {
			if ns.Overlaps(s) || ns.Contains(s) {
				return true
			}
		}
	}
	return false
}

// scope is the walker state inherited by descendants.
type scope struct {
	parent  *symbols.Span
	local   bool
	inError bool
}

// prefix carries tokens contributed by a wrapper or preceding siblings.
type prefix struct {
	span        *symbols.Span
	tokens      []string
	annotations []string
}

type walker struct {
	ctx  context.Context
	spec *LanguageSpec
	lang string
	src  []byte
	out  []Declaration
	// skip holds reused declaration spans, set once one has been skipped.
	skip map[[2]int]bool
}

func (w *walker) top(root parsers.Node, nodes []parsers.Node) error {
	st := scope{}
	if root.IsError() {
		w.unknown(root, symbols.DiagSyntaxError, "syntax error", st)
		st.inError = true
	}
	return w.siblings(root, nodes, st)
}

func (w *walker) siblings(parent parsers.Node, nodes []parsers.Node, st scope) error {
	var leading []string
	for _, c := range nodes {
		if c.IsMissing() {
			if !st.inError {
				w.missing(c, st)
			}
			continue
		}
		if !c.IsNamed() && !c.IsError() {
			continue
		}
		if w.spec.CommentKinds[c.Kind()] {
			continue
		}
		if w.spec.LeadingAnnotationKinds[c.Kind()] {
			leading = append(leading, textOf(c))
			continue
		}
		if err := w.visit(c, parent, st, prefix{annotations: leading}); err != nil {
			return err
		}
		leading = nil
	}
	return nil
}

func (w *walker) visit(n, parent parsers.Node, st scope, pre prefix) error {
	if n.IsError() {
		if !st.inError {
			w.unknown(n, symbols.DiagSyntaxError, "syntax error", st)
		}
		st.inError = true
		return w.siblings(n, n.Children(), st)
	}

	if field, ok := w.spec.Wrappers[n.Kind()]; ok {
		if inner := w.wrapped(n, field); inner != nil {
			return w.visit(inner, parent, st, w.unwrap(n, inner, pre))
		}
	}

	if rule, ok := w.match(n, parent, st); ok {
		return w.declaration(n, rule, st, pre)
	}

	if parent != nil && w.spec.MemberContainers[parent.Kind()] && w.unexpectedMember(n) {
		w.unknown(n, symbols.DiagUnknownConstruct, fmt.Sprintf("unrecognized member %s", n.Kind()), st)
		return nil
	}

	if w.spec.LocalScopes[n.Kind()] {
		st.local = true
	}
	return w.siblings(n, n.Children(), st)
}

func (w *walker) unexpectedMember(n parsers.Node) bool {
	kind := n.Kind()
	if w.spec.IgnoredMembers[kind] || w.spec.LocalScopes[kind] || w.spec.MemberContainers[kind] {
		return false
	}
	if _, ok := w.spec.Wrappers[kind]; ok {
		return false
	}
	if _, ok := w.spec.Rules[kind]; ok {
		return false
	}
	return true
}

func (w *walker) match(n, parent parsers.Node, st scope) (DeclRule, bool) {
	rule, ok := w.spec.Rules[n.Kind()]
	if !ok {
		return DeclRule{}, false
	}
	if parent != nil && !rule.within(parent.Kind()) {
		return DeclRule{}, false
	}
	if rule.NoLocal && st.local {
		return DeclRule{}, false
	}
	if rule.Require != "" && find(n, rule.Require) == nil {
		return DeclRule{}, false
	}
	return rule, true
}

func (w *walker) wrapped(n parsers.Node, field string) parsers.Node {
	if field != "" {
		return n.Field(field)
	}
	for _, c := range n.NamedChildren() {
		if _, ok := w.spec.Rules[c.Kind()]; ok {
			return c
		}
	}
	return nil
}

func (w *walker) unwrap(wrapper, inner parsers.Node, pre prefix) prefix {
	span := wrapper.Span()
	if pre.span != nil {
		span = *pre.span
	}
	out := prefix{span: &span}
	out.tokens = append(out.tokens, pre.tokens...)
	out.annotations = append(out.annotations, pre.annotations...)
	for _, c := range wrapper.Children() {
		if sameNode(c, inner) {
			continue
		}
		switch {
		case w.spec.AnnotationKinds[c.Kind()]:
			out.annotations = append(out.annotations, textOf(c))
		case !c.IsNamed() && w.spec.ModifierTokens[c.Kind()]:
			out.tokens = append(out.tokens, c.Text())
		}
	}
	return out
}

func (w *walker) declaration(n parsers.Node, rule DeclRule, st scope, pre prefix) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	nodeSpan := n.Span()
	if pre.span != nil {
		nodeSpan = *pre.span
	}
	key := [2]int{nodeSpan.StartByte, nodeSpan.EndByte}
	if _, ok := w.skip[key]; ok {
		w.skip[key] = true
		return nil
	}

	base := Declaration{
		Language:   w.lang,
		Kind:       n.Kind(),
		ParentSpan: st.parent,
		Local:      st.local || rule.Local,
		TypeParams: textOf(find(n, rule.TypeParams)),
		Type:       textOf(find(n, rule.Type)),
		Receiver:   textOf(find(n, rule.Receiver)),
	}
	if rule.Kind != "" {
		base.Kind = rule.Kind
	}

	body := find(n, rule.Body)
	tokens, annotations, sigStart := w.modifiers(n, body)
	base.Modifiers = append(append(append([]string(nil), pre.tokens...), tokens...), rule.Modifiers...)
	base.Annotations = append(append([]string(nil), pre.annotations...), annotations...)
	for _, ref := range rule.Extends {
		for _, h := range findAll(n, ref) {
			base.Extends = append(base.Extends, textOf(h))
		}
	}
	for _, ref := range rule.Implements {
		for _, h := range findAll(n, ref) {
			base.Implements = append(base.Implements, textOf(h))
		}
	}
	if args := find(n, rule.Arguments); args != nil {
		for _, a := range args.NamedChildren() {
			if w.spec.CommentKinds[a.Kind()] {
				continue
			}
			base.Arguments = append(base.Arguments, textOf(a))
		}
	}

	sigEnd := nodeSpan.EndByte
	if body != nil && body.Span().StartByte >= sigStart {
		sigEnd = body.Span().StartByte
	}

	if !w.emit(n, rule, base, nodeSpan, sigStart, sigEnd) {
		return w.siblings(n, n.Children(), st)
	}

	own := nodeSpan
	if rule.Components != nil {
		w.components(n, rule.Components, own, st)
	}

	inner := scope{parent: &own, local: st.local || rule.Executable || rule.Local, inError: st.inError}
	return w.siblings(n, n.Children(), inner)
}

// emit appends one declaration, or one per declarator when the node declares
// several names. It reports false when no name could be resolved.
func (w *walker) emit(n parsers.Node, rule DeclRule, base Declaration, span symbols.Span, sigStart, sigEnd int) bool {
	var declarators []parsers.Node
	if rule.Declarators != "" {
		declarators = findAll(n, rule.Declarators)
	}

	if len(declarators) > 1 {
		count := 0
		first, last := declarators[0].Span(), declarators[len(declarators)-1].Span()
		prefixText := w.slice(sigStart, first.StartByte)
		suffixText := w.slice(last.EndByte, n.Span().EndByte)
		for _, d := range declarators {
			name := w.name(d, rule, false)
			if name == "" {
				continue
			}
			decl := base
			decl.Name = name
			decl.Span = d.Span()
			decl.Kind = w.declaratorKind(d, rule, base.Kind)
			decl.Default = textOf(w.defaultNode(d, n, rule))
			own := d.Span()
			if v := valueNode(d, rule); v != nil && v.Span().StartByte > own.StartByte {
				own.EndByte = v.Span().StartByte
			}
			decl.Signature = trimHeader(collapse(prefixText + w.slice(d.Span().StartByte, own.EndByte) + suffixText))
			w.out = append(w.out, decl)
			count++
		}
		return count > 0
	}

	target := n
	required := true
	if len(declarators) == 1 {
		target, required = declarators[0], false
	}
	name := w.name(target, rule, required)
	if name == "" {
		return false
	}

	decl := base
	decl.Name = name
	decl.Span = span
	decl.Kind = w.declaratorKind(target, rule, base.Kind)
	decl.Default = textOf(w.defaultNode(target, n, rule))
	if len(declarators) == 1 && rule.Body == "" {
		if v := valueNode(target, rule); v != nil && v.Span().StartByte > sigStart {
			sigEnd = v.Span().StartByte
		}
	}
	decl.Signature = trimHeader(collapse(w.slice(sigStart, sigEnd)))
	w.out = append(w.out, decl)
	return true
}

// valueNode is the initializer of a declarator.
func valueNode(declarator parsers.Node, rule DeclRule) parsers.Node {
	if v := find(declarator, rule.Default); v != nil {
		return v
	}
	return declarator.Field("value")
}

func (w *walker) name(n parsers.Node, rule DeclRule, required bool) string {
	if rule.NameFromText {
		return textOf(n)
	}
	nameNode := resolveName(n, rule.nameRefs(), required)
	if nameNode == nil {
		return ""
	}
	if len(rule.NameKinds) > 0 {
		ok := false
		for _, k := range rule.NameKinds {
			ok = ok || nameNode.Kind() == k
		}
		if !ok {
			return ""
		}
	}
	return textOf(nameNode)
}

func (w *walker) declaratorKind(n parsers.Node, rule DeclRule, kind string) string {
	if len(rule.DeclaratorKinds) == 0 {
		return kind
	}
	for _, k := range chainKinds(n, rule.nameRefs()) {
		if override, ok := rule.DeclaratorKinds[k]; ok {
			return override
		}
	}
	return kind
}

func (w *walker) defaultNode(declarator, n parsers.Node, rule DeclRule) parsers.Node {
	if rule.Default == "" {
		return nil
	}
	if v := find(declarator, rule.Default); v != nil {
		return v
	}
	return find(n, rule.Default)
}

// modifiers collects modifier tokens and annotations from the direct
// children of n, and returns the offset where the header text starts once
// leading annotations are skipped.
func (w *walker) modifiers(n, body parsers.Node) ([]string, []string, int) {
	var tokens, annotations []string
	sigStart := n.Span().StartByte
	skip := func(end int) {
		if end > sigStart {
			sigStart = end
		}
	}

	for _, c := range n.Children() {
		if sameNode(c, body) {
			break
		}
		kind := c.Kind()
		switch {
		case w.spec.ModifierContainers[kind]:
			leadingOnly := true
			for _, m := range c.Children() {
				if w.spec.CommentKinds[m.Kind()] {
					continue
				}
				if w.spec.AnnotationKinds[m.Kind()] {
					annotations = append(annotations, textOf(m))
					if leadingOnly {
						skip(m.Span().EndByte)
					}
					continue
				}
				leadingOnly = false
				tokens = append(tokens, textOf(m))
			}
		case w.spec.AnnotationKinds[kind]:
			annotations = append(annotations, textOf(c))
			if len(tokens) == 0 {
				skip(c.Span().EndByte)
			}
		case w.spec.ModifierKinds[kind]:
			tokens = append(tokens, textOf(c))
		case !c.IsNamed() && w.spec.ModifierTokens[kind]:
			tokens = append(tokens, c.Text())
		}
	}
	return tokens, annotations, sigStart
}

func (w *walker) components(n parsers.Node, rule *ComponentRule, parent symbols.Span, st scope) {
	list := find(n, rule.Container)
	if list == nil {
		return
	}
	refs := rule.Name
	if len(refs) == 0 {
		refs = []string{"name"}
	}
	for _, c := range list.NamedChildren() {
		if c.Kind() != rule.Kind {
			continue
		}
		nameNode := resolveName(c, refs, true)
		if nameNode == nil {
			continue
		}
		tokens, annotations, sigStart := w.modifiers(c, nil)
		p := parent
		w.out = append(w.out, Declaration{
			Language:    w.lang,
			Kind:        rule.RawKind,
			Name:        textOf(nameNode),
			Span:        c.Span(),
			ParentSpan:  &p,
			Modifiers:   tokens,
			Annotations: annotations,
			Type:        textOf(find(c, rule.Type)),
			Signature:   trimHeader(collapse(w.slice(sigStart, c.Span().EndByte))),
			Local:       st.local,
		})
	}
}

func (w *walker) unknown(n parsers.Node, problem symbols.DiagnosticKind, message string, st scope) {
	w.report(Declaration{
		Language:   w.lang,
		Kind:       KindUnknown,
		Span:       n.Span(),
		ParentSpan: st.parent,
		Local:      st.local,
		Text:       n.Text(),
		Problem:    problem,
		Message:    message,
	})
}

func (w *walker) missing(n parsers.Node, st scope) {
	w.report(Declaration{
		Language:   w.lang,
		Kind:       KindUnknown,
		Span:       n.Span(),
		ParentSpan: st.parent,
		Local:      st.local,
		Problem:    symbols.DiagSyntaxError,
		Message:    fmt.Sprintf("missing %s", n.Kind()),
	})
}

// report appends an unknown declaration. Parsers often split one broken
// construct into several error and missing nodes; a report that touches
// the previous one, or is separated from it only by blanks on the same
// line, extends it instead.
func (w *walker) report(d Declaration) {
	if n := len(w.out); n > 0 {
		last := &w.out[n-1]
		if last.IsUnknown() && sameParent(last.ParentSpan, d.ParentSpan) && w.adjacent(last.Span, d.Span) {
			if d.Span.EndByte > last.Span.EndByte {
				last.Span.EndByte = d.Span.EndByte
				last.Span.End = d.Span.End
			}
			last.Text = w.slice(last.Span.StartByte, last.Span.EndByte)
			return
		}
	}
	w.out = append(w.out, d)
}

// adjacent reports whether next starts inside prev or after blanks on the
// line prev ends on.
func (w *walker) adjacent(prev, next symbols.Span) bool {
	if next.StartByte < prev.StartByte {
		return false
	}
	if next.StartByte <= prev.EndByte {
		return true
	}
	for _, b := range w.slice(prev.EndByte, next.StartByte) {
		if b != ' ' && b != '\t' {
			return false
		}
	}
	return true
}

func sameParent(a, b *symbols.Span) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte == b.StartByte && a.EndByte == b.EndByte
}

// reportedErrors converts out-of-band parser errors, keeping only those
// inside covered when filter is set.
func (w *walker) reportedErrors(tree parsers.Tree, filter bool, covered []symbols.Span) {
	reporter, ok := tree.(parsers.ErrorReporter)
	if !ok {
		return
	}
	for _, se := range reporter.SyntaxErrors() {
		if filter && !coveredOffset(covered, se.Span.StartByte) {
			continue
		}
		w.out = append(w.out, Declaration{
			Language: w.lang,
			Kind:     KindUnknown,
			Span:     se.Span,
			Problem:  symbols.DiagSyntaxError,
			Message:  se.Message,
		})
	}
}

func coveredOffset(spans []symbols.Span, off int) bool {
	for _, s := range spans {
		if s.ContainsOffset(off) {
			return true
		}
	}
	return false
}

func (w *walker) slice(start, end int) string {
	if end > len(w.src) {
		end = len(w.src)
	}
	if start >= end {
		return ""
	}
	return string(w.src[start:end])
}
