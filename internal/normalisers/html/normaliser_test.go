package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

func TestNormaliser_Normalise(t *testing.T) {
	n := New()
	raw := &domain.RawDocument{
		URI:      "guides/borrow-checker.html",
		MIMEType: "text/html",
		Content: []byte(`<html><head><title> The Borrow
			Checker </title><style>body { color: red }</style></head>
			<body><script>alert("x")</script><h1>Ownership</h1><p>Rust&#39;s borrow checker<br>enforces rules.</p>
			<!-- hidden comment --><ul><li>one</li><li>two</li></ul></body></html>`),
	}

	result, err := n.Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "The Borrow Checker", result.Title)
	assert.Equal(t, "Ownership Rust's borrow checker enforces rules. one two", result.Body)
}

func TestNormaliser_TitleFallsBackToFilename(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:     "docs/getting_started.htm",
		Content: []byte("<p>Hello</p>"),
	})
	require.NoError(t, err)

	assert.Equal(t, "getting started", result.Title)
	assert.Equal(t, "Hello", result.Body)
}

func TestNormaliser_NilInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStripTags(t *testing.T) {
	got := StripTags(`<p>Use <code>Vec&lt;T&gt;</code> here.</p><pre>let x = 1;</pre>`)

	assert.Equal(t, "Use Vec<T> here. let x = 1;", got)
}

func TestNormaliser_Metadata(t *testing.T) {
	n := New()

	assert.Equal(t, 50, n.Priority())
	assert.Contains(t, n.SupportedMIMETypes(), "text/html")
}
