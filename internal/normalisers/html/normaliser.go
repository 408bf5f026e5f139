package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise strips markup. The title is the <title> element, falling back
// to the filename stem.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing html %s: %w", raw.URI, err)
	}

	title := domain.CollapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = plaintext.TitleFromURI(raw.URI)
	}

	return &driven.NormaliseResult{
		Title: title,
		Body:  Text(doc.Selection),
	}, nil
}

// StripTags returns the readable text of an HTML fragment, such as a
// Stack Exchange post body.
func StripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return domain.CollapseWhitespace(fragment)
	}
	return Text(doc.Selection)
}

// skipped elements never contribute text.
const skipped = "head, script, style, noscript, svg, template, iframe"

// blockElements are separated from their neighbours by whitespace.
var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "hr": {}, "li": {}, "tr": {}, "td": {}, "th": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "table": {}, "section": {}, "article": {},
	"ul": {}, "ol": {}, "dl": {}, "dt": {}, "dd": {},
}

// Text extracts visible text from a selection with whitespace collapsed.
func Text(sel *goquery.Selection) string {
	sel.Find(skipped).Remove()

	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(node *xhtml.Node) {
		switch node.Type {
		case xhtml.TextNode:
			b.WriteString(node.Data)
			return
		case xhtml.CommentNode:
			return
		}
		_, block := blockElements[node.Data]
		if block && node.Type == xhtml.ElementNode {
			b.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block && node.Type == xhtml.ElementNode {
			b.WriteByte(' ')
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return domain.CollapseWhitespace(b.String())
}
