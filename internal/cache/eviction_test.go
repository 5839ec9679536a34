package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symmap/internal/indexer"
)

// Test Plan:
// 1. Test DefaultEvictionPolicy returns expected values
// 2. Test the entry ceiling evicts the least recently queried entry
// 3. Test a Peek counts as a query
// 4. Test the symbol ceiling evicts until the total fits
// 5. Test a zero policy never evicts

func TestDefaultEvictionPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultEvictionPolicy()
	assert.Equal(t, 1024, policy.MaxEntries)
	assert.Equal(t, 1_000_000, policy.MaxSymbols)
}

func TestEviction_MaxEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := DefaultOptions()
	opts.Eviction = EvictionPolicy{MaxEntries: 2}
	c := newTestCache(t, newGatedBuilder(), opts)

	for _, id := range []string{"A.java", "B.java", "C.java"} {
		_, err := c.Get(ctx, id, []byte(shapesV1))
		require.NoError(t, err)
	}

	assert.Equal(t, Absent, c.Status("A.java"))
	assert.Equal(t, Ready, c.Status("B.java"))
	assert.Equal(t, Ready, c.Status("C.java"))
	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Evictions)

	// Peek moves B ahead of C.
	c.Peek("B.java")
	_, err := c.Get(ctx, "D.java", []byte(shapesV1))
	require.NoError(t, err)

	assert.Equal(t, Ready, c.Status("B.java"))
	assert.Equal(t, Absent, c.Status("C.java"))
	assert.Equal(t, Ready, c.Status("D.java"))
	assert.Equal(t, int64(2), c.Stats().Evictions)
}

func TestEviction_MaxSymbols(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, err := indexer.NewMapper().Map(ctx, "Shape.java", []byte(shapesV1))
	require.NoError(t, err)
	per := m.Len()
	require.Greater(t, per, 0)

	opts := DefaultOptions()
	opts.Eviction = EvictionPolicy{MaxSymbols: per + 1}
	c := newTestCache(t, newGatedBuilder(), opts)

	_, err = c.Get(ctx, "A.java", []byte(shapesV1))
	require.NoError(t, err)
	_, err = c.Get(ctx, "B.java", []byte(shapesV1))
	require.NoError(t, err)

	assert.Equal(t, Absent, c.Status("A.java"))
	assert.Equal(t, Ready, c.Status("B.java"))
	stats := c.Stats()
	assert.Equal(t, per, stats.Symbols)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestEviction_Disabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := DefaultOptions()
	opts.Eviction = EvictionPolicy{}
	c := newTestCache(t, newGatedBuilder(), opts)

	for _, id := range []string{"A.java", "B.java", "C.java"} {
		_, err := c.Get(ctx, id, []byte(shapesV1))
		require.NoError(t, err)
	}
	stats := c.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Zero(t, stats.Evictions)
}
