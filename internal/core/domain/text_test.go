package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"a  b", "a b"},
		{"\n\tleading and trailing \n", "leading and trailing"},
		{"line\r\nbreak", "line break"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CollapseWhitespace(tt.in), "input %q", tt.in)
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Run("shorter input is unchanged", func(t *testing.T) {
		assert.Equal(t, "abc", TruncateRunes("abc", 10))
	})

	t.Run("cuts on rune boundaries", func(t *testing.T) {
		got := TruncateRunes("héllo wörld", 7)

		assert.Equal(t, "héllo w", got)
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("zero disables truncation", func(t *testing.T) {
		assert.Equal(t, "abc", TruncateRunes("abc", 0))
	})
}

func TestMakePreview(t *testing.T) {
	t.Run("short body is kept whole", func(t *testing.T) {
		assert.Equal(t, "short body", MakePreview("short body"))
	})

	t.Run("long body gets an ellipsis", func(t *testing.T) {
		body := strings.Repeat("word ", 100)

		p := MakePreview(body)

		assert.True(t, strings.HasSuffix(p, "..."))
		assert.LessOrEqual(t, utf8.RuneCountInString(p), PreviewChars+3)
	})
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("notes", "jsonl:notes:1", "  Borrow\nChecker ", "Rust's   borrow checker\nenforces...", "notes.jsonl#L1", "", "fp", 0)

	assert.Equal(t, "Borrow Checker", doc.Title)
	assert.Equal(t, "Rust's borrow checker enforces...", doc.Body)
	assert.Equal(t, doc.Body, doc.Preview)
	assert.Equal(t, "notes", doc.Source)
	assert.Equal(t, "fp", doc.Fingerprint)

	truncated := NewDocument("s", "id", "t", strings.Repeat("x", 50), "", "", "", 10)
	assert.Equal(t, 10, utf8.RuneCountInString(truncated.Body))
}
