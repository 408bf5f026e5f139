package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

func TestManifestStore_LookupRecord(t *testing.T) {
	store := NewManifestStore()
	ctx := context.Background()

	_, found, err := store.Lookup(ctx, "notes", "jsonl:notes:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Record(ctx, domain.ManifestEntry{
		Source: "notes", DocID: "jsonl:notes:1", Fingerprint: "aa", IndexedAt: time.Now(),
	}))
	require.NoError(t, store.Record(ctx, domain.ManifestEntry{
		Source: "notes", DocID: "jsonl:notes:1", Fingerprint: "bb", IndexedAt: time.Now(),
	}))

	fp, found, err := store.Lookup(ctx, "notes", "jsonl:notes:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bb", fp)

	// Sources do not share entries.
	_, found, err = store.Lookup(ctx, "docs", "jsonl:notes:1")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := store.Count(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManifestStore_Prune(t *testing.T) {
	store := NewManifestStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Record(ctx, domain.ManifestEntry{Source: "notes", DocID: id, Fingerprint: id}))
	}
	require.NoError(t, store.Record(ctx, domain.ManifestEntry{Source: "docs", DocID: "a", Fingerprint: "x"}))

	removed, err := store.Prune(ctx, "notes", map[string]struct{}{"b": {}})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, removed)

	n, err := store.Count(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
