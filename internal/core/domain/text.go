package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PreviewChars is the length of a stored preview in runes, before the ellipsis.
const PreviewChars = 280

// CollapseWhitespace replaces every run of whitespace with one space and trims the ends.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateRunes cuts s to at most n runes. n <= 0 disables truncation.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// MakePreview derives the stored preview from an already collapsed body.
func MakePreview(body string) string {
	p := TruncateRunes(body, PreviewChars)
	if len(p) < len(body) {
		return strings.TrimRight(p, " ") + "..."
	}
	return p
}

// NewDocument builds a Document from raw parts, applying whitespace collapsing,
// body truncation and preview derivation.
func NewDocument(source, docID, title, body, location, url, fingerprint string, maxChars int) *Document {
	body = strings.TrimRight(TruncateRunes(CollapseWhitespace(body), maxChars), " ")
	return &Document{
		DocID:       docID,
		Source:      source,
		Title:       CollapseWhitespace(title),
		Body:        body,
		Preview:     MakePreview(body),
		Location:    location,
		URL:         url,
		Fingerprint: fingerprint,
	}
}
