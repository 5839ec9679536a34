package indexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	slogctx "github.com/veqryn/slog-context"

	"github.com/mvp-joe/symmap/internal/indexer/assemble"
	"github.com/mvp-joe/symmap/internal/indexer/extraction"
	"github.com/mvp-joe/symmap/internal/indexer/normalize"
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// DefaultMaxFileSize is the largest source mapped unless configured otherwise.
const DefaultMaxFileSize = 1 << 20

// Fingerprint identifies a content version: sha256 of the bytes, hex encoded.
func Fingerprint(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Mapper runs the parse → extract → normalize → assemble pipeline for one
// file at a time. It is safe for concurrent use.
type Mapper struct {
	registry    *parsers.Registry
	extractor   *extraction.Extractor
	normalizer  *normalize.Normalizer
	maxFileSize int
}

// MapperOption customizes a Mapper.
type MapperOption func(*Mapper)

// WithRegistry replaces the default parser registry.
func WithRegistry(r *parsers.Registry) MapperOption {
	return func(m *Mapper) { m.registry = r }
}

// WithMaxFileSize sets the size limit in bytes. Zero or less disables it.
func WithMaxFileSize(n int) MapperOption {
	return func(m *Mapper) { m.maxFileSize = n }
}

// WithNormalizer replaces the default rule tables.
func WithNormalizer(n *normalize.Normalizer) MapperOption {
	return func(m *Mapper) { m.normalizer = n }
}

// WithExtractor replaces the default extraction tables.
func WithExtractor(e *extraction.Extractor) MapperOption {
	return func(m *Mapper) { m.extractor = e }
}

// NewMapper creates a mapper for every shipped language.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = parsers.DefaultRegistry()
	}
	if m.extractor == nil {
		m.extractor = extraction.NewExtractor()
	}
	if m.normalizer == nil {
		m.normalizer = normalize.NewNormalizer()
	}
	return m
}

// Registry returns the parser registry used for language detection.
func (m *Mapper) Registry() *parsers.Registry {
	return m.registry
}

// MaxFileSize returns the configured size limit, zero when disabled.
func (m *Mapper) MaxFileSize() int {
	if m.maxFileSize < 0 {
		return 0
	}
	return m.maxFileSize
}

// Supports reports whether a path has a registered parser adapter.
func (m *Mapper) Supports(path string) bool {
	return m.registry.Supports(path)
}

// BuildResult is a freshly built map plus the tree it was built from.
type BuildResult struct {
	Map *symbols.FileMap
	// Tree is owned by the caller and must be closed.
	Tree parsers.Tree
	// Partial is set when only the edited region was re-extracted.
	Partial bool
	// Reused counts the symbols carried over from the previous map
	// without re-extraction.
	Reused int
}

// Close releases the tree.
func (r *BuildResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
	}
}

// CheckSize returns ErrFileTooLarge when size exceeds the limit.
func (m *Mapper) CheckSize(path string, size int) error {
	if m.maxFileSize > 0 && size > m.maxFileSize {
		return fmt.Errorf("%s is %d bytes (limit %d): %w", path, size, m.maxFileSize, symbols.ErrFileTooLarge)
	}
	return nil
}

// Build maps src from scratch. Syntax errors never fail a build; they end up
// as diagnostics on the map.
func (m *Mapper) Build(ctx context.Context, path string, src []byte) (*BuildResult, error) {
	return m.build(ctx, path, src, nil)
}

// build maps src from scratch, taking symbol ids over from prev where the
// declarations match.
func (m *Mapper) build(ctx context.Context, path string, src []byte, prev *symbols.FileMap) (*BuildResult, error) {
	adapter, err := m.registry.ForPath(path)
	if err != nil {
		return nil, err
	}
	if err := m.CheckSize(path, len(src)); err != nil {
		return nil, err
	}

	tree, err := adapter.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	decls, err := m.extractor.Extract(ctx, tree)
	if err != nil {
		tree.Close()
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	fm, err := m.finish(ctx, path, adapter.Language(), src, decls, nil, nil, prev)
	if err != nil {
		tree.Close()
		return nil, err
	}

	slogctx.Debug(ctx, "mapped file",
		"path", path,
		"language", fm.Language,
		"symbols", fm.Len(),
		"diagnostics", len(fm.Diagnostics),
		"degraded", fm.Degraded)

	return &BuildResult{Map: fm, Tree: tree}, nil
}

// Map builds a map and discards the tree.
func (m *Mapper) Map(ctx context.Context, path string, src []byte) (*symbols.FileMap, error) {
	res, err := m.Build(ctx, path, src)
	if err != nil {
		return nil, err
	}
	res.Close()
	return res.Map, nil
}

// Rebuild maps src, the result of applying edits to the content prev was
// built from. When the previous tree can be reused it reparses
// incrementally and re-extracts only the top-level declarations in changed
// regions. Every other root subtree, and every member of an edited
// declaration that no edit reached, is kept from prev with shifted spans.
// Otherwise it builds from scratch. Either way symbols keep the ids they
// had in prev while their declarations still match. prev and prevTree are
// not modified.
func (m *Mapper) Rebuild(ctx context.Context, path string, prev *symbols.FileMap, prevTree parsers.Tree, src []byte, edits []parsers.Edit) (*BuildResult, error) {
	res, reason, err := m.rebuild(ctx, path, prev, prevTree, src, edits)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	slogctx.Debug(ctx, "full rebuild", "path", path, "reason", reason)
	return m.build(ctx, path, src, prev)
}

// rebuild returns a nil result and a reason when a full build is needed.
func (m *Mapper) rebuild(ctx context.Context, path string, prev *symbols.FileMap, prevTree parsers.Tree, src []byte, edits []parsers.Edit) (*BuildResult, string, error) {
	if prev == nil || prevTree == nil {
		return nil, "no previous tree", nil
	}
	if prev.Degraded {
		return nil, "previous map degraded", nil
	}
	adapter, err := m.registry.ForPath(path)
	if err != nil {
		return nil, "", err
	}
	if err := m.CheckSize(path, len(src)); err != nil {
		return nil, "", err
	}
	inc, ok := adapter.(parsers.IncrementalAdapter)
	if !ok {
		return nil, "adapter is not incremental", nil
	}

	oldSrc := prevTree.Source()
	if Fingerprint(oldSrc) != prev.Fingerprint {
		return nil, "previous tree does not match previous map", nil
	}
	sorted, err := parsers.SortEdits(edits, len(oldSrc))
	if err != nil {
		return nil, "invalid edits: " + err.Error(), nil
	}
	if !bytes.Equal(parsers.ApplyEdits(oldSrc, sorted), src) {
		return nil, "edits do not reproduce content", nil
	}

	tree, changed, err := inc.Reparse(ctx, prevTree, src, sorted)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "reparse failed: " + err.Error(), nil
	}

	li := symbols.NewLineIndex(src)
	shift := func(s symbols.Span) symbols.Span { return parsers.ShiftSpan(s, sorted, li) }

	var members [][]*symbols.Symbol
	var skip []symbols.Span
	for _, root := range prev.Root() {
		if parsers.TouchesEdit(root.Span, sorted) || intersectsAny(shift(root.Span), changed) {
			trees, spans := reusableMembers(prev, root, sorted, changed, shift)
			members = append(members, trees...)
			skip = append(skip, spans...)
		}
	}

	rr, err := m.extractor.ExtractRange(ctx, tree, changed, skip)
	if err != nil {
		tree.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "range extraction failed: " + err.Error(), nil
	}
	covered := rr.Covered

	dirty := append(append([]symbols.Span(nil), covered...), changed...)

	var reused [][]*symbols.Symbol
	for _, root := range prev.Root() {
		shifted := shift(root.Span)
		if !parsers.TouchesEdit(root.Span, sorted) && !intersectsAny(shifted, dirty) {
			reused = append(reused, assemble.Subtree(prev, root.ID, shift))
			continue
		}
		// A root that was neither kept nor re-extracted would silently vanish.
		if !intersectsAny(shifted, covered) {
			tree.Close()
			return nil, "edited root outside re-extracted region", nil
		}
	}
	skipped := make(map[[2]int]bool, len(rr.Skipped))
	for _, s := range rr.Skipped {
		skipped[[2]int{s.StartByte, s.EndByte}] = true
	}
	for _, t := range members {
		if skipped[[2]int{t[0].Span.StartByte, t[0].Span.EndByte}] {
			reused = append(reused, t)
		}
	}

	var kept []symbols.Diagnostic
	for _, d := range prev.Diagnostics {
		if parsers.TouchesEdit(d.Span, sorted) {
			continue
		}
		d.Span = shift(d.Span)
		if intersectsAny(d.Span, dirty) {
			continue
		}
		kept = append(kept, d)
	}

	fm, err := m.finish(ctx, path, prev.Language, src, rr.Declarations, kept, reused, prev)
	if err != nil {
		tree.Close()
		return nil, "", err
	}

	carried := 0
	for _, t := range reused {
		if fm.Symbols[t[0].ID] == t[0] {
			carried += len(t)
		}
	}

	slogctx.Debug(ctx, "partially rebuilt file",
		"path", path,
		"edits", len(sorted),
		"reextracted", len(covered),
		"reused", carried,
		"symbols", fm.Len())

	return &BuildResult{Map: fm, Tree: tree, Partial: true, Reused: carried}, "", nil
}

// finish normalizes declarations and assembles them, together with any
// reused subtrees, into a FileMap. prev, when set, lends its ids.
func (m *Mapper) finish(ctx context.Context, path, language string, src []byte, decls []extraction.Declaration, kept []symbols.Diagnostic, reused [][]*symbols.Symbol, prev *symbols.FileMap) (*symbols.FileMap, error) {
	norm, err := m.normalizer.NormalizeAll(ctx, decls)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to normalize %s: %w", path, err)
	}

	diags := append(kept, norm.Diagnostics...)
	sort.SliceStable(diags, func(i, j int) bool {
		return diags[i].Span.StartByte < diags[j].Span.StartByte
	})

	in := assemble.Input{
		FileID:      path,
		Fingerprint: Fingerprint(src),
		Language:    language,
		Symbols:     norm.Symbols,
		Diagnostics: diags,
		Previous:    prev,
	}
	if reused == nil {
		return assemble.Assemble(in), nil
	}
	return assemble.Merge(in, reused), nil
}

// reusableMembers collects the descendants of an edited symbol that no
// edit reached, as subtrees with shifted spans, together with their new
// spans. A symbol whose header was edited is not descended into.
func reusableMembers(prev *symbols.FileMap, s *symbols.Symbol, edits []parsers.Edit, changed []symbols.Span, shift func(symbols.Span) symbols.Span) ([][]*symbols.Symbol, []symbols.Span) {
	children := prev.ChildrenOf(s.ID)
	if len(children) == 0 {
		return nil, nil
	}
	header := symbols.Span{StartByte: s.Span.StartByte, EndByte: children[0].Span.StartByte}
	if parsers.TouchesEdit(header, edits) {
		return nil, nil
	}

	var trees [][]*symbols.Symbol
	var spans []symbols.Span
	for _, c := range children {
		shifted := shift(c.Span)
		if parsers.TouchesEdit(c.Span, edits) || intersectsAny(shifted, changed) || hasDiagnostic(prev, c.Span) {
			t, sp := reusableMembers(prev, c, edits, changed, shift)
			trees = append(trees, t...)
			spans = append(spans, sp...)
			continue
		}
		trees = append(trees, assemble.Subtree(prev, c.ID, shift))
		spans = append(spans, shifted)
	}
	return trees, spans
}

func hasDiagnostic(m *symbols.FileMap, span symbols.Span) bool {
	for _, d := range m.Diagnostics {
		if span.Overlaps(d.Span) || span.Contains(d.Span) {
			return true
		}
	}
	return false
}

func intersectsAny(span symbols.Span, spans []symbols.Span) bool {
	for _, s := range spans {
		if span.Overlaps(s) || span.Contains(s) || s.Contains(span) {
			return true
		}
	}
	return false
}
