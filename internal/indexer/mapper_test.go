package indexer

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Test Plan for Mapper:
// - Scenario A: generic method bound resolves to Comparable<T>
// - Scenario B: enum constants expose their literal argument
// - Scenario C: record components are children in declaration order
// - Scenario D: a broken member still yields the type and its valid members
//   with exactly one diagnostic on the broken line
// - The reference Java example maps without diagnostics to the expected outline
// - Markdown headings map to sections nested by level, with the level as a modifier
// - Mapping the same content twice yields equal maps
// - Unsupported and oversized files are refused with typed errors
// - Rebuild after a whitespace edit is partial and equals a full build
// - Rebuild after a body edit keeps ids and reuses untouched roots
// - Rebuild keeps overload ids when an overload is removed or inserted,
//   on the partial path and on the full fallback
// - Rebuild inside one member reuses the untouched members of its type
// - Rebuild falls back to a full build for non-incremental adapters and bad edits

const scenarioJava = `package demo;

class Sorter {
    <T extends Comparable<T>> T max(T a, T b) {
        return a.compareTo(b) > 0 ? a : b;
    }
}

enum Color {
    RED("r"),
    GREEN("g"),
    BLUE("b"),
    BLACK("k");

    Color(String code) {}
}

record Point(int x, int y) {}
`

const (
	testJavaFixture      = "../../testdata/code/java/Example.java"
	referenceJavaFixture = "../../testdata/code/java/java_example.java"
)

func findSymbol(m *symbols.FileMap, kind symbols.Kind, name string) *symbols.Symbol {
	var found *symbols.Symbol
	m.Walk(func(s *symbols.Symbol, depth int) bool {
		if found == nil && s.Kind == kind && s.Name == name {
			found = s
		}
		return found == nil
	})
	return found
}

func childNames(m *symbols.FileMap, id symbols.ID) []string {
	var out []string
	for _, c := range m.ChildrenOf(id) {
		out = append(out, c.Name)
	}
	return out
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return src
}

func TestMapper_Scenarios(t *testing.T) {
	t.Parallel()

	m, err := NewMapper().Map(context.Background(), "demo/Shapes.java", []byte(scenarioJava))
	require.NoError(t, err)
	require.False(t, m.Degraded)
	assert.Equal(t, "java", m.Language)
	assert.Empty(t, m.Diagnostics)

	// Test: Scenario A
	method := findSymbol(m, symbols.KindMethod, "max")
	require.NotNil(t, method)
	require.Len(t, method.Generics, 1)
	assert.Equal(t, "T", method.Generics[0].Name)
	require.Len(t, method.Generics[0].Bounds, 1)
	assert.Equal(t, "Comparable<T>", method.Generics[0].Bounds[0].String())

	// Test: Scenario B
	enum := findSymbol(m, symbols.KindEnum, "Color")
	require.NotNil(t, enum)
	var constants []*symbols.Symbol
	for _, c := range m.ChildrenOf(enum.ID) {
		if c.Kind == symbols.KindEnumConstant {
			constants = append(constants, c)
		}
	}
	require.Len(t, constants, 4)
	literals := []string{`"r"`, `"g"`, `"b"`, `"k"`}
	for i, c := range constants {
		assert.Equal(t, []string{literals[i]}, c.Arguments, c.Name)
		assert.Equal(t, enum.ID, c.Parent)
	}

	// Test: Scenario C
	record := findSymbol(m, symbols.KindRecord, "Point")
	require.NotNil(t, record)
	assert.Equal(t, []string{"x", "y"}, childNames(m, record.ID))
	for _, c := range m.ChildrenOf(record.ID) {
		assert.Equal(t, symbols.KindRecordComponent, c.Kind)
	}
}

// Test: Scenario D
func TestMapper_BrokenMember(t *testing.T) {
	t.Parallel()

	src := []byte("class Broken {\n  int ok;\n  int = ;\n  void run() {}\n}\n")
	m, err := NewMapper().Map(context.Background(), "Broken.java", src)
	require.NoError(t, err)

	broken := findSymbol(m, symbols.KindType, "Broken")
	require.NotNil(t, broken)
	assert.Equal(t, []string{"ok", "run"}, childNames(m, broken.ID))

	require.Len(t, m.Diagnostics, 1)
	assert.True(t, m.HasErrors())
	d := m.Diagnostics[0]
	assert.Contains(t, []symbols.DiagnosticKind{symbols.DiagSyntaxError, symbols.DiagUnknownConstruct}, d.Kind)
	assert.Equal(t, 2, d.Span.Start.Line, "diagnostic starts on the broken line")
	assert.Equal(t, 2, d.Span.End.Line, "diagnostic ends on the broken line")
	assert.True(t, broken.Span.Contains(d.Span))
}

// Test: the reference example maps cleanly
func TestMapper_ReferenceJava(t *testing.T) {
	t.Parallel()

	m, err := NewMapper().Map(context.Background(), "example/Example.java", readFixture(t, referenceJavaFixture))
	require.NoError(t, err)
	require.False(t, m.Degraded)
	assert.Empty(t, m.Diagnostics)
	require.NoError(t, m.Validate())

	type root struct {
		kind     symbols.Kind
		name     string
		children []string
	}
	want := []root{
		{symbols.KindInterface, "DataProcessor", []string{"processAsync", "validate"}},
		{symbols.KindEnum, "Status", []string{"PENDING", "ACTIVE", "COMPLETED", "FAILED", "code", "Status", "getCode"}},
		{symbols.KindType, "BaseEntity", []string{"id", "createdAt", "updatedAt", "validate"}},
		{symbols.KindRecord, "UserDTO", []string{"name", "email", "roles"}},
		{symbols.KindAnnotationDefinition, "Audited", []string{"value", "required"}},
		{symbols.KindType, "Example", []string{
			"MAX_RETRIES", "CACHE", "queue", "status", "name", "Example", "Builder",
			"processAsync", "validate", "validate", "sort", "processItems",
			"ProcessingException", "main",
		}},
	}
	roots := m.Root()
	require.Len(t, roots, len(want))
	for i, w := range want {
		assert.Equal(t, w.kind, roots[i].Kind, w.name)
		assert.Equal(t, w.name, roots[i].Name)
		assert.Equal(t, w.children, childNames(m, roots[i].ID), w.name)
	}

	example := roots[5]
	builder := findSymbol(m, symbols.KindType, "Builder")
	require.NotNil(t, builder)
	assert.Equal(t, example.ID, builder.Parent)
	assert.Equal(t, []string{"name", "name", "build"}, childNames(m, builder.ID))

	main := findSymbol(m, symbols.KindMethod, "main")
	require.NotNil(t, main)
	assert.Empty(t, main.Children, "locals, lambdas and resources are not declarations")
	assert.True(t, main.Modifiers.Static)

	validates := overloadIDs(m, example.ID, "validate")
	assert.Len(t, validates, 2)
}

const markdownDoc = `# Symmap

Structural maps of source files.

## Install

go install ./cmd/symmap

## Usage

### Outline

` + "```" + `
# symmap outline Shape.java
` + "```" + `

### Lookup

Configuration
-------------

Reference
=========
`

// Test: markdown heading maps
func TestMapper_Markdown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := []byte(markdownDoc)

	first, err := mapper.Build(ctx, "docs/README.md", src)
	require.NoError(t, err)
	defer first.Close()
	m := first.Map
	assert.Equal(t, parsers.LangMarkdown, m.Language)
	require.False(t, m.Degraded)
	assert.Empty(t, m.Diagnostics)
	require.NoError(t, m.Validate())

	roots := m.Root()
	require.Len(t, roots, 2)
	assert.Equal(t, "Symmap", roots[0].Name)
	assert.Equal(t, "Reference", roots[1].Name)
	assert.Equal(t, []string{"Install", "Usage", "Configuration"}, childNames(m, roots[0].ID))
	assert.Empty(t, childNames(m, roots[1].ID))

	usage := findSymbol(m, symbols.KindSection, "Usage")
	require.NotNil(t, usage)
	assert.Equal(t, []string{"Outline", "Lookup"}, childNames(m, usage.ID))
	assert.Equal(t, "## Usage", usage.Signature)
	assert.Equal(t, []string{"h2"}, usage.Modifiers.Extra)

	config := findSymbol(m, symbols.KindSection, "Configuration")
	require.NotNil(t, config)
	assert.Equal(t, "Configuration", config.Signature)
	assert.True(t, config.Modifiers.HasExtra("h2"))
	assert.Equal(t, roots[0].ID, config.Parent)

	outline := findSymbol(m, symbols.KindSection, "Outline")
	require.NotNil(t, outline)
	assert.True(t, outline.Modifiers.HasExtra("h3"))
	assert.Empty(t, outline.Children, "headings in code blocks are not sections")

	reference := roots[1]
	assert.Equal(t, symbols.KindSection, reference.Kind)
	assert.True(t, reference.Modifiers.HasExtra("h1"))
	assert.Equal(t, 21, reference.Span.Start.Line)

	// Test: edits rebuild from scratch and keep ids
	next, edit := insertAt(src, "go install", "Run:\n\n    ")
	res, err := mapper.Rebuild(ctx, "docs/README.md", m, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	assert.False(t, res.Partial)
	assert.Equal(t, m.SortedIDs(), res.Map.SortedIDs())
}

// Test: identical content and file id give identical maps
func TestMapper_Idempotent(t *testing.T) {
	t.Parallel()

	src := readFixture(t, testJavaFixture)
	mapper := NewMapper()
	a, err := mapper.Map(context.Background(), "Example.java", src)
	require.NoError(t, err)
	b, err := mapper.Map(context.Background(), "Example.java", src)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, Fingerprint(src), a.Fingerprint)
	require.NoError(t, a.Validate())
}

// Test: typed refusals
func TestMapper_Refusals(t *testing.T) {
	t.Parallel()

	_, err := NewMapper().Map(context.Background(), "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, symbols.ErrUnsupportedLanguage)

	_, err = NewMapper(WithMaxFileSize(10)).Map(context.Background(), "Big.java", []byte(scenarioJava))
	assert.ErrorIs(t, err, symbols.ErrFileTooLarge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMapper().Map(ctx, "Example.java", []byte(scenarioJava))
	assert.Error(t, err)
}

// overloadIDs maps the signatures of the methods called name under parent
// to their ids.
func overloadIDs(m *symbols.FileMap, parent symbols.ID, name string) map[string]symbols.ID {
	out := map[string]symbols.ID{}
	for _, c := range m.ChildrenOf(parent) {
		if c.Kind == symbols.KindMethod && c.Name == name {
			out[c.Signature] = c.ID
		}
	}
	return out
}

// idOf returns the id whose signature contains fragment.
func idOf(t *testing.T, ids map[string]symbols.ID, fragment string) symbols.ID {
	t.Helper()
	for sig, id := range ids {
		if strings.Contains(sig, fragment) {
			return id
		}
	}
	t.Fatalf("no signature contains %q in %v", fragment, ids)
	return ""
}

func insertAt(src []byte, marker, text string) ([]byte, parsers.Edit) {
	at := strings.Index(string(src), marker)
	edit := parsers.Edit{StartByte: at, OldEndByte: at, NewText: text}
	return parsers.ApplyEdits(src, []parsers.Edit{edit}), edit
}

// Test: whitespace edits rebuild partially and match a full build
func TestMapper_RebuildWhitespace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := readFixture(t, testJavaFixture)

	first, err := mapper.Build(ctx, "Example.java", src)
	require.NoError(t, err)
	defer first.Close()

	next, edit := insertAt(src, "public class Example", "\n\n")
	res, err := mapper.Rebuild(ctx, "Example.java", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	assert.True(t, res.Partial)

	full, err := mapper.Map(ctx, "Example.java", next)
	require.NoError(t, err)
	assert.Equal(t, full, res.Map)
	assert.Equal(t, first.Map.SortedIDs(), res.Map.SortedIDs())
	assert.Equal(t, first.Map.Roots, res.Map.Roots)

	example := findSymbol(res.Map, symbols.KindType, "Example")
	require.NotNil(t, example)
	old := findSymbol(first.Map, symbols.KindType, "Example")
	assert.Equal(t, old.Span.StartByte+2, example.Span.StartByte)
	assert.Equal(t, old.Span.Start.Line+2, example.Span.Start.Line)
}

// Test: edits inside a type re-extract it and keep the other roots
func TestMapper_RebuildBodyEdit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := readFixture(t, testJavaFixture)

	first, err := mapper.Build(ctx, "Example.java", src)
	require.NoError(t, err)
	defer first.Close()

	next, edit := insertAt(src, "        public Example build()", "        public void reset() {}\n\n")
	res, err := mapper.Rebuild(ctx, "Example.java", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	assert.True(t, res.Partial)

	full, err := mapper.Map(ctx, "Example.java", next)
	require.NoError(t, err)
	assert.Equal(t, full, res.Map)

	builder := findSymbol(res.Map, symbols.KindType, "Builder")
	require.NotNil(t, builder)
	assert.Equal(t, []string{"name", "name", "reset", "build"}, childNames(res.Map, builder.ID))

	for _, id := range first.Map.SortedIDs() {
		_, ok := res.Map.Lookup(id)
		assert.True(t, ok, "id %s survives", id)
	}
	assert.Equal(t, first.Map.Len()+1, res.Map.Len())

	status := findSymbol(res.Map, symbols.KindEnum, "Status")
	require.NotNil(t, status)
	oldStatus := findSymbol(first.Map, symbols.KindEnum, "Status")
	assert.Equal(t, oldStatus.Span, status.Span)
	assert.NotSame(t, oldStatus, status)
}

// Test: removing an overload leaves the other overload's id alone
func TestMapper_RebuildRemovedOverload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := readFixture(t, referenceJavaFixture)

	first, err := mapper.Build(ctx, "Example.java", src)
	require.NoError(t, err)
	defer first.Close()
	example := findSymbol(first.Map, symbols.KindType, "Example")
	require.NotNil(t, example)
	before := overloadIDs(first.Map, example.ID, "validate")
	require.Len(t, before, 2)
	removedID := idOf(t, before, "validate(String input)")
	keptID := idOf(t, before, "validate()")

	start := strings.Index(string(src), "    @Override\n    public boolean validate(String input)")
	end := strings.Index(string(src), "    // Abstract method implementation")
	require.True(t, start > 0 && end > start)
	edit := parsers.Edit{StartByte: start, OldEndByte: end}
	next := parsers.ApplyEdits(src, []parsers.Edit{edit})

	res, err := mapper.Rebuild(ctx, "Example.java", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	assert.True(t, res.Partial)

	after := overloadIDs(res.Map, example.ID, "validate")
	require.Len(t, after, 1)
	assert.Equal(t, keptID, idOf(t, after, "validate()"))
	_, ok := res.Map.Lookup(removedID)
	assert.False(t, ok, "the removed overload's id is gone")

	// Test: the full fallback keeps the same id
	full, err := mapper.Rebuild(ctx, "Example.java", first.Map, nil, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer full.Close()
	assert.False(t, full.Partial)
	assert.Equal(t, after, overloadIDs(full.Map, example.ID, "validate"))
	assert.Equal(t, res.Map.SortedIDs(), full.Map.SortedIDs())

	// A map built without history numbers the survivor from scratch.
	fresh, err := mapper.Map(ctx, "Example.java", next)
	require.NoError(t, err)
	assert.Equal(t, removedID, idOf(t, overloadIDs(fresh, example.ID, "validate"), "validate()"))
}

// Test: inserting an overload keeps the existing overload ids
func TestMapper_RebuildInsertedOverload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := readFixture(t, referenceJavaFixture)

	first, err := mapper.Build(ctx, "Example.java", src)
	require.NoError(t, err)
	defer first.Close()
	example := findSymbol(first.Map, symbols.KindType, "Example")
	require.NotNil(t, example)
	before := overloadIDs(first.Map, example.ID, "validate")
	require.Len(t, before, 2)

	next, edit := insertAt(src, "    @Override\n    public boolean validate(String input)",
		"    public boolean validate(int level) {\n        return level > 0;\n    }\n\n")
	res, err := mapper.Rebuild(ctx, "Example.java", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	assert.True(t, res.Partial)
	require.NoError(t, res.Map.Validate())

	after := overloadIDs(res.Map, example.ID, "validate")
	require.Len(t, after, 3)
	assert.Equal(t, idOf(t, before, "validate(String input)"), idOf(t, after, "validate(String input)"))
	assert.Equal(t, idOf(t, before, "validate()"), idOf(t, after, "validate()"))

	added := idOf(t, after, "validate(int level)")
	_, existed := first.Map.Lookup(added)
	assert.False(t, existed, "the new overload gets an unused id")

	for _, id := range first.Map.SortedIDs() {
		_, ok := res.Map.Lookup(id)
		assert.True(t, ok, "id %s survives", id)
	}
}

// Test: an edit inside one method reuses the other members of its type
func TestMapper_RebuildReusesMembers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()
	src := readFixture(t, referenceJavaFixture)

	first, err := mapper.Build(ctx, "Example.java", src)
	require.NoError(t, err)
	defer first.Close()

	example := findSymbol(first.Map, symbols.KindType, "Example")
	require.NotNil(t, example)
	var subtree func(id symbols.ID) int
	subtree = func(id symbols.ID) int {
		n := 1
		for _, c := range first.Map.ChildrenOf(id) {
			n += subtree(c.ID)
		}
		return n
	}
	outside := first.Map.Len() - subtree(example.ID)

	at := strings.Index(string(src), `"Name is required"`)
	require.Greater(t, at, 0)
	edit := parsers.Edit{StartByte: at + 1, OldEndByte: at + 2, NewText: "n"}
	next := parsers.ApplyEdits(src, []parsers.Edit{edit})

	res, err := mapper.Rebuild(ctx, "Example.java", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	defer res.Close()
	require.True(t, res.Partial)
	assert.Greater(t, res.Reused, outside, "members of Example are reused, not only the other roots")

	full, err := mapper.Map(ctx, "Example.java", next)
	require.NoError(t, err)
	assert.Equal(t, full, res.Map)
	assert.Equal(t, first.Map.SortedIDs(), res.Map.SortedIDs())
}

// Test: fallbacks produce full builds
func TestMapper_RebuildFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mapper := NewMapper()

	goSrc := readFixture(t, "../../testdata/code/go/simple.go")
	first, err := mapper.Build(ctx, "simple.go", goSrc)
	require.NoError(t, err)
	next, edit := insertAt(goSrc, "type Handler", "// Handler serves.\n")
	res, err := mapper.Rebuild(ctx, "simple.go", first.Map, first.Tree, next, []parsers.Edit{edit})
	require.NoError(t, err)
	assert.False(t, res.Partial)
	assert.Equal(t, first.Map.SortedIDs(), res.Map.SortedIDs())

	src := []byte(scenarioJava)
	javaFirst, err := mapper.Build(ctx, "Shapes.java", src)
	require.NoError(t, err)
	defer javaFirst.Close()

	// Edits that do not produce the supplied content.
	bad := parsers.Edit{StartByte: 0, OldEndByte: 0, NewText: "// x\n"}
	res, err = mapper.Rebuild(ctx, "Shapes.java", javaFirst.Map, javaFirst.Tree, src, []parsers.Edit{bad})
	require.NoError(t, err)
	defer res.Close()
	assert.False(t, res.Partial)
	assert.Equal(t, javaFirst.Map, res.Map)

	// No previous tree.
	res2, err := mapper.Rebuild(ctx, "Shapes.java", nil, nil, src, nil)
	require.NoError(t, err)
	defer res2.Close()
	assert.False(t, res2.Partial)
}
