package query

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// Test Plan for Service:
// - Outline lists roots in document order and expands on demand
// - MaxDepth cuts expansion and flags symbols with hidden children
// - Local symbols are hidden unless requested
// - Views are deep copies of the cached symbols
// - Lookup finds the innermost symbol by point or offset, or nothing
// - FindByName matches exactly or by glob, with a kind filter
// - Absent and failed files are reported unavailable, never empty
// - Stale and degraded maps are flagged on results
// - Invalidate and Status pass through to the cache

const exampleFixture = "../../testdata/code/java/Example.java"

func newExampleService(t *testing.T) (*Service, *cache.Cache, []byte) {
	t.Helper()
	src, err := os.ReadFile(exampleFixture)
	require.NoError(t, err)

	c, err := cache.New(context.Background(), indexer.NewMapper(), cache.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Get(context.Background(), "Example.java", src)
	require.NoError(t, err)
	return NewService(c), c, src
}

func names(views []*SymbolView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func child(t *testing.T, views []*SymbolView, name string) *SymbolView {
	t.Helper()
	for _, v := range views {
		if v.Name == name {
			return v
		}
	}
	require.Failf(t, "missing symbol", "%s not in %v", name, names(views))
	return nil
}

func TestService_Outline(t *testing.T) {
	t.Parallel()

	svc, _, _ := newExampleService(t)

	res, err := svc.Outline("Example.java", OutlineOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Processor", "Status", "Entity", "Account", "Tracked", "Example"}, names(res.Symbols))
	assert.Equal(t, "java", res.Language)
	assert.Equal(t, "ready", res.State)
	assert.False(t, res.Stale)
	assert.False(t, res.Degraded)

	example := child(t, res.Symbols, "Example")
	builder := child(t, example.Children, "Builder")
	assert.Equal(t, []string{"name", "name", "build"}, names(builder.Children))

	// Test: local classes stay hidden by default
	sort := child(t, example.Children, "sort")
	assert.Empty(t, sort.Children)
	assert.False(t, sort.HasMore)

	withLocal, err := svc.Outline("Example.java", OutlineOptions{IncludeLocal: true})
	require.NoError(t, err)
	sort = child(t, child(t, withLocal.Symbols, "Example").Children, "sort")
	sorter := child(t, sort.Children, "Sorter")
	assert.True(t, sorter.Local)
}

// Test: MaxDepth limits expansion
func TestService_OutlineDepth(t *testing.T) {
	t.Parallel()

	svc, _, _ := newExampleService(t)

	res, err := svc.Outline("Example.java", OutlineOptions{MaxDepth: 1})
	require.NoError(t, err)
	example := child(t, res.Symbols, "Example")
	assert.Empty(t, example.Children)
	assert.True(t, example.HasMore)
	account := child(t, res.Symbols, "Account")
	assert.True(t, account.HasMore)

	res, err = svc.Outline("Example.java", OutlineOptions{MaxDepth: 2})
	require.NoError(t, err)
	example = child(t, res.Symbols, "Example")
	builder := child(t, example.Children, "Builder")
	assert.Empty(t, builder.Children)
	assert.True(t, builder.HasMore)

	// Test: Expand drills into a symbol
	expanded, err := svc.Expand("Example.java", builder.ID, OutlineOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "name", "build"}, names(expanded.Symbols))

	_, err = svc.Expand("Example.java", "no-such-id", OutlineOptions{})
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

// Test: results never alias the cached map
func TestService_ViewsAreCopies(t *testing.T) {
	t.Parallel()

	svc, c, _ := newExampleService(t)

	res, err := svc.Outline("Example.java", OutlineOptions{})
	require.NoError(t, err)
	status := child(t, res.Symbols, "Status")
	status.Name = "Renamed"
	pending := child(t, status.Children, "PENDING")
	pending.Arguments[0] = `"X"`

	again, err := svc.Outline("Example.java", OutlineOptions{})
	require.NoError(t, err)
	status = child(t, again.Symbols, "Status")
	assert.Equal(t, []string{`"P"`}, child(t, status.Children, "PENDING").Arguments)

	m := c.Peek("Example.java").Map
	require.NoError(t, m.Validate())
}

func TestService_Lookup(t *testing.T) {
	t.Parallel()

	svc, _, src := newExampleService(t)

	// Test: a point inside a nested method resolves to that method
	res, err := svc.Lookup("Example.java", AtLine(63, 13))
	require.NoError(t, err)
	require.NotNil(t, res.Symbol)
	assert.Equal(t, "name", res.Symbol.Name)
	assert.Equal(t, symbols.KindMethod, res.Symbol.Kind)
	assert.Equal(t, []string{"Example", "Builder", "name"}, res.Path)
	assert.Equal(t, "63:13", res.Position)

	// Test: byte offsets work the same way
	off := strings.Index(string(src), "MAX_ITEMS")
	res, err = svc.Lookup("Example.java", AtOffset(off))
	require.NoError(t, err)
	require.NotNil(t, res.Symbol)
	assert.Equal(t, "MAX_ITEMS", res.Symbol.Name)
	assert.Equal(t, []string{"Example", "MAX_ITEMS"}, res.Path)

	// Test: local symbols are considered
	res, err = svc.Lookup("Example.java", AtLine(87, 17))
	require.NoError(t, err)
	require.NotNil(t, res.Symbol)
	assert.Equal(t, "run", res.Symbol.Name)
	assert.True(t, res.Symbol.Local)

	// Test: positions outside every symbol find nothing
	res, err = svc.Lookup("Example.java", AtLine(2, 1))
	require.NoError(t, err)
	assert.Nil(t, res.Symbol)
	assert.Empty(t, res.Path)
}

func TestService_FindByName(t *testing.T) {
	t.Parallel()

	svc, _, _ := newExampleService(t)

	tests := []struct {
		name    string
		pattern string
		kinds   []symbols.Kind
		want    []string
	}{
		{name: "exact", pattern: "name", want: []string{"name", "name"}},
		{name: "exact with kind", pattern: "name", kinds: []symbols.Kind{symbols.KindMethod}, want: []string{"name"}},
		{name: "prefix glob", pattern: "get*", want: []string{"getCode"}},
		{name: "suffix glob with kind", pattern: "*Exception", kinds: []symbols.Kind{symbols.KindType}, want: []string{"ProcessingException"}},
		{name: "alternatives", pattern: "{PENDING,FAILED}", want: []string{"PENDING", "FAILED"}},
		{name: "no match", pattern: "Missing", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.FindByName("Example.java", tt.pattern, tt.kinds...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Matches))
			assert.Equal(t, tt.pattern, res.Pattern)
		})
	}

	_, err := svc.FindByName("Example.java", "[unclosed")
	assert.ErrorIs(t, err, ErrInvalidPattern)
	_, err = svc.FindByName("Example.java", "")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

// Test: files without a map are unavailable, not empty
func TestService_Unavailable(t *testing.T) {
	t.Parallel()

	svc, c, _ := newExampleService(t)

	_, err := svc.Outline("Missing.java", OutlineOptions{})
	assert.ErrorIs(t, err, symbols.ErrMapUnavailable)
	_, err = svc.Lookup("Missing.java", AtOffset(0))
	assert.ErrorIs(t, err, symbols.ErrMapUnavailable)
	_, err = svc.FindByName("Missing.java", "x")
	assert.ErrorIs(t, err, symbols.ErrMapUnavailable)

	_, err = c.Get(context.Background(), "notes.txt", []byte("hello"))
	require.Error(t, err)
	_, err = svc.Outline("notes.txt", OutlineOptions{})
	assert.ErrorIs(t, err, symbols.ErrMapUnavailable)
	assert.ErrorIs(t, err, symbols.ErrUnsupportedLanguage)
	assert.Equal(t, cache.Failed, svc.Status("notes.txt"))

	// Test: invalidation passes through
	assert.True(t, svc.Invalidate("Example.java"))
	assert.Equal(t, cache.Absent, svc.Status("Example.java"))
	_, err = svc.Outline("Example.java", OutlineOptions{})
	assert.ErrorIs(t, err, symbols.ErrMapUnavailable)
}

// fakeSnapshots serves fixed snapshots.
type fakeSnapshots map[string]*cache.Snapshot

func (f fakeSnapshots) Peek(fileID string) *cache.Snapshot {
	if s, ok := f[fileID]; ok {
		return s
	}
	return &cache.Snapshot{FileID: fileID, State: cache.Absent}
}

func (f fakeSnapshots) Status(fileID string) cache.State { return f.Peek(fileID).State }

func (f fakeSnapshots) Invalidate(fileID string) bool {
	_, ok := f[fileID]
	delete(f, fileID)
	return ok
}

// Test: stale and degraded maps are flagged
func TestService_Flags(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile(exampleFixture)
	require.NoError(t, err)
	m, err := indexer.NewMapper().Map(context.Background(), "Example.java", src)
	require.NoError(t, err)

	degraded := m.Clone()
	degraded.Degraded = true
	degraded.Diagnostics = []symbols.Diagnostic{{Kind: symbols.DiagMalformedMap, Message: "overlap"}}

	svc := NewService(fakeSnapshots{
		"Example.java": {FileID: "Example.java", Map: degraded, State: cache.Building, Stale: true},
	})

	res, err := svc.Outline("Example.java", OutlineOptions{MaxDepth: 1})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.True(t, res.Degraded)
	assert.Equal(t, "building", res.State)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, symbols.DiagMalformedMap, res.Diagnostics[0].Kind)

	found, err := svc.FindByName("Example.java", "Status", symbols.KindEnum)
	require.NoError(t, err)
	assert.True(t, found.Stale)
	assert.Len(t, found.Matches, 1)
}

func TestParsePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{in: "12:5", want: AtLine(12, 5)},
		{in: " 1:1 ", want: Position{ByPoint: true}},
		{in: "340", want: AtOffset(340)},
		{in: "0", want: AtOffset(0)},
		{in: "0:3", wantErr: true},
		{in: "a:b", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePosition(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidPosition, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLoader(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "src", "Shape.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("class Shape {\n    int sides;\n}\n"), 0o644))

	c, err := cache.New(ctx, indexer.NewMapper(), cache.DefaultOptions())
	require.NoError(t, err)
	defer c.Close()

	loader, err := NewLoader(root, c)
	require.NoError(t, err)

	fileID, snap, err := loader.Load(ctx, "src/Shape.java")
	require.NoError(t, err)
	assert.Equal(t, "src/Shape.java", fileID)
	assert.Equal(t, cache.Ready, snap.State)

	// Test: absolute paths map to the same id
	id, err := loader.FileID(path)
	require.NoError(t, err)
	assert.Equal(t, "src/Shape.java", id)
	_, err = loader.FileID("../outside.java")
	assert.Error(t, err)

	// Test: a changed file is rebuilt, not served stale
	require.NoError(t, os.WriteFile(path, []byte("class Shape {\n    int sides;\n    int area() { return 0; }\n}\n"), 0o644))
	_, snap, err = loader.Load(ctx, path)
	require.NoError(t, err)
	assert.False(t, snap.Stale)
	assert.Equal(t, cache.Ready, snap.State)

	res, err := NewService(c).FindByName("src/Shape.java", "area")
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)

	_, _, err = loader.Load(ctx, "src/Missing.java")
	assert.Error(t, err)
}
