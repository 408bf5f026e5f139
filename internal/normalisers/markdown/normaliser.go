// Package markdown provides a Normaliser implementation for Markdown
// documents. Formatting markers are removed and link targets dropped,
// leaving the prose for indexing.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise takes the first heading as the title, falling back to the
// filename stem, and strips formatting from the body.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	content, frontTitle := splitFrontMatter(content)

	title := firstHeading(content)
	if title == "" {
		title = frontTitle
	}
	if title == "" {
		title = plaintext.TitleFromURI(raw.URI)
	}

	return &driven.NormaliseResult{
		Title: title,
		Body:  strip(content),
	}, nil
}

var (
	headingLine  = regexp.MustCompile(`^#{1,6}\s+(.+?)(?:\s+#+)?\s*$`)
	fenceMarkers = regexp.MustCompile("(?m)^\\s*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinks     = regexp.MustCompile(`(?m)^\s*\[[^\]]+\]:\s+\S+.*$`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	blockquote   = regexp.MustCompile(`(?m)^\s*>\s?`)
	hr           = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s+`)
	htmlTags     = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	frontTitle   = regexp.MustCompile(`(?m)^title:\s*["']?(.+?)["']?\s*$`)
)

// firstHeading returns the text of the first ATX heading outside code fences.
func firstHeading(content string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingLine.FindStringSubmatch(trimmed); m != nil {
			return strings.TrimSpace(emphasis.ReplaceAllString(m[1], ""))
		}
	}
	return ""
}

// splitFrontMatter removes a leading YAML front matter block and returns
// its title field, if any.
func splitFrontMatter(content string) (string, string) {
	if !strings.HasPrefix(content, "---\n") {
		return content, ""
	}
	end := strings.Index(content[4:], "\n---")
	if end < 0 {
		return content, ""
	}
	front := content[4 : 4+end]
	rest := strings.TrimPrefix(content[4+end+4:], "\n")

	title := ""
	if m := frontTitle.FindStringSubmatch(front); m != nil {
		title = m[1]
	}
	return rest, title
}

// strip removes Markdown syntax. Code block contents are kept since they
// are often what users search for.
func strip(content string) string {
	content = fenceMarkers.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = headings.ReplaceAllString(content, "$1")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "")
	content = htmlTags.ReplaceAllString(content, "")
	return domain.CollapseWhitespace(content)
}
