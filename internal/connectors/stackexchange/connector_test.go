package stackexchange

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
)

const postsXML = `<?xml version="1.0" encoding="utf-8"?>
<posts>
  <row Id="1" PostTypeId="1" Title="What is the borrow checker?" Body="&lt;p&gt;Rust's &lt;b&gt;borrow checker&lt;/b&gt; enforces ownership.&lt;/p&gt;" LastActivityDate="2024-01-02T03:04:05.000" />
  <row Id="2" PostTypeId="2" ParentId="1" Body="&lt;p&gt;It validates references.&lt;/p&gt;" LastActivityDate="2024-01-03T00:00:00.000" />
  <row PostTypeId="1" Title="No id" Body="&lt;p&gt;orphan&lt;/p&gt;" />
  <row Id="4" PostTypeId="1" Title="Empty" Body="" />
</posts>
`

func newConnector(t *testing.T, content string, mutate ...func(*domain.SourceDescriptor)) *Connector {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Posts.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	desc := domain.SourceDescriptor{Name: "rust-se", Kind: domain.SourceKindStackExchange, Path: path}
	for _, m := range mutate {
		m(&desc)
	}
	require.NoError(t, desc.Validate())
	c := New(desc, 0)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// ingest runs one pass over c and drains it.
func ingest(t *testing.T, c *Connector, skip driven.SkipChecker) ([]domain.IngestItem, *driven.IngestComplete) {
	t.Helper()

	items, errs := c.Ingest(context.Background(), skip)
	return drain(t, items, errs)
}

func drain(t *testing.T, items <-chan domain.IngestItem, errs <-chan error) ([]domain.IngestItem, *driven.IngestComplete) {
	t.Helper()

	var got []domain.IngestItem
	for item := range items {
		got = append(got, item)
	}
	var complete *driven.IngestComplete
	for err := range errs {
		ic, ok := driven.IsIngestComplete(err)
		require.True(t, ok, "unexpected error: %v", err)
		complete = ic
	}
	return got, complete
}

func TestConnector_Ingest(t *testing.T) {
	c := newConnector(t, postsXML, func(d *domain.SourceDescriptor) {
		d.SiteURL = "https://rust.stackexchange.com/"
	})

	items, complete := ingest(t, c, nil)

	require.NotNil(t, complete)
	assert.Equal(t, 4, complete.Scanned)
	assert.Equal(t, 2, complete.Invalid)
	assert.True(t, complete.FullyEnumerated)
	require.Len(t, items, 2)

	question := items[0].Document
	require.NotNil(t, question)
	assert.Equal(t, "stackexchange:rust-se:1", question.DocID)
	assert.Equal(t, "What is the borrow checker?", question.Title)
	assert.Equal(t, "Rust's borrow checker enforces ownership.", question.Body)
	assert.Equal(t, "Posts.xml#1", question.Location)
	assert.Equal(t, "https://rust.stackexchange.com/q/1", question.URL)

	answer := items[1].Document
	require.NotNil(t, answer)
	assert.Equal(t, "Post 2", answer.Title)
	assert.Equal(t, "It validates references.", answer.Body)
	assert.Equal(t, "https://rust.stackexchange.com/a/2", answer.URL)
}

func TestConnector_Ingest_NoSiteURL(t *testing.T) {
	c := newConnector(t, postsXML)

	items, _ := ingest(t, c, nil)

	require.NotEmpty(t, items)
	assert.Empty(t, items[0].Document.URL)
}

func TestConnector_Ingest_Unchanged(t *testing.T) {
	c := newConnector(t, postsXML)

	items, _ := ingest(t, c, nil)
	require.Len(t, items, 2)

	manifest := memory.NewManifestStore()
	require.NoError(t, manifest.Record(context.Background(), domain.ManifestEntry{
		Source: "se", DocID: items[0].DocID, Fingerprint: items[0].Fingerprint,
	}))
	skip := driven.ManifestSkip(manifest, "se", nil)
	again, _ := ingest(t, c, skip)

	require.Len(t, again, 2)
	assert.True(t, again[0].Unchanged)
	assert.Nil(t, again[0].Document)
	assert.False(t, again[1].Unchanged)
}

func TestConnector_Ingest_SyntaxError(t *testing.T) {
	c := newConnector(t, `<posts>
  <row Id="1" Title="Fine" Body="ok" />
  <row Id="2" Title="Broken Body="oops" />
  <row Id="3" Title="Never seen" Body="late" />
</posts>`)

	items, complete := ingest(t, c, nil)

	require.NotNil(t, complete)
	assert.False(t, complete.FullyEnumerated)
	require.Len(t, items, 1)
	assert.Equal(t, "stackexchange:rust-se:1", items[0].DocID)
}

func TestConnector_Ingest_Closed(t *testing.T) {
	c := newConnector(t, postsXML)
	require.NoError(t, c.Close())

	items, errs := c.Ingest(context.Background(), nil)
	for range items {
	}

	assert.ErrorIs(t, <-errs, domain.ErrAdapterClosed)
}

func TestConnector_Ingest_Cancelled(t *testing.T) {
	c := newConnector(t, postsXML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, errs := c.Ingest(ctx, nil)
	for range items {
	}

	assert.ErrorIs(t, <-errs, context.Canceled)
}

func TestConnector_Validate(t *testing.T) {
	c := newConnector(t, postsXML)
	require.NoError(t, c.Validate(context.Background()))

	c.path = t.TempDir()
	assert.ErrorIs(t, c.Validate(context.Background()), domain.ErrInvalidConfig)
}

func TestFingerprint(t *testing.T) {
	base := post{id: "1", title: "t", body: "b", lastActivity: "2024"}

	assert.Equal(t, fingerprint(base), fingerprint(base))

	edited := base
	edited.lastActivity = "2025"
	assert.NotEqual(t, fingerprint(base), fingerprint(edited))

	// Field boundaries are part of the hash.
	shifted := post{id: "1", title: "tb", body: "", lastActivity: "2024"}
	assert.NotEqual(t, fingerprint(base), fingerprint(shifted))
}
