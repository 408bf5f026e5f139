// Package stackexchange implements the ingestion adapter for Stack Exchange
// Posts.xml dumps. The file is streamed one <row> at a time.
package stackexchange

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/normalisers/html"
)

// postTypeAnswer is the PostTypeId of answers.
const postTypeAnswer = "2"

// Ensure Connector implements the interface.
var _ driven.Adapter = (*Connector)(nil)

// Connector streams rows of a Posts.xml dump.
type Connector struct {
	source          string
	path            string
	siteURL         string
	maxIndexedChars int

	mu     sync.Mutex
	closed bool
}

// New creates a Stack Exchange connector for a validated descriptor.
func New(desc domain.SourceDescriptor, maxIndexedChars int) *Connector {
	return &Connector{
		source:          desc.Name,
		path:            desc.Path,
		siteURL:         strings.TrimRight(desc.SiteURL, "/"),
		maxIndexedChars: maxIndexedChars,
	}
}

// Kind returns the source kind.
func (c *Connector) Kind() domain.SourceKind {
	return domain.SourceKindStackExchange
}

// Source returns the configured source name.
func (c *Connector) Source() string {
	return c.source
}

// Validate checks the dump exists and is a regular file.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("source %s: %w", c.source, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: source %s: %s is a directory", domain.ErrInvalidConfig, c.source, c.path)
	}
	return nil
}

// Ingest streams the dump. A syntax error ends the stream early and the pass
// is reported as not fully enumerated.
func (c *Connector) Ingest(ctx context.Context, skip driven.SkipChecker) (<-chan domain.IngestItem, <-chan error) {
	items := make(chan domain.IngestItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			errs <- domain.ErrAdapterClosed
			return
		}
		if skip == nil {
			skip = driven.NeverSkip
		}

		complete, err := c.ingest(ctx, skip, items)
		if err != nil {
			errs <- err
			return
		}
		errs <- complete
	}()

	return items, errs
}

// post holds the attributes of one row.
type post struct {
	id           string
	title        string
	body         string
	lastActivity string
	postType     string
}

func (c *Connector) ingest(ctx context.Context, skip driven.SkipChecker, items chan<- domain.IngestItem) (*driven.IngestComplete, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.source, err)
	}
	defer f.Close()

	complete := &driven.IngestComplete{FullyEnumerated: true}
	file := filepath.Base(c.path)
	dec := xml.NewDecoder(f)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return complete, nil
		}
		if err != nil {
			line, _ := dec.InputPos()
			logger.Warn("source %s: %s: stopping at line %d: %v", c.source, file, line, err)
			complete.FullyEnumerated = false
			return complete, nil
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "row" {
			continue
		}
		complete.Scanned++

		p := readPost(start)
		item, err := c.item(ctx, skip, p, file)
		if err != nil {
			logger.Warn("source %s: %s: %v, skipping", c.source, file, err)
			complete.Invalid++
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case items <- item:
		}
	}
}

func readPost(start xml.StartElement) post {
	var p post
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Id":
			p.id = strings.TrimSpace(attr.Value)
		case "Title":
			p.title = attr.Value
		case "Body":
			p.body = attr.Value
		case "LastActivityDate":
			p.lastActivity = attr.Value
		case "PostTypeId":
			p.postType = strings.TrimSpace(attr.Value)
		}
	}
	return p
}

var errMissingID = errors.New("row has no Id")

func (c *Connector) item(ctx context.Context, skip driven.SkipChecker, p post, file string) (domain.IngestItem, error) {
	if p.id == "" {
		return domain.IngestItem{}, errMissingID
	}

	docID := "stackexchange:" + c.source + ":" + p.id
	fingerprint := fingerprint(p)
	if driven.Unchanged(ctx, skip, docID, fingerprint) {
		return domain.IngestItem{DocID: docID, Fingerprint: fingerprint, Unchanged: true}, nil
	}

	title := p.title
	if strings.TrimSpace(title) == "" {
		title = "Post " + p.id
	}

	doc := domain.NewDocument(c.source, docID, title, html.StripTags(p.body), file+"#"+p.id, c.postURL(p), fingerprint, c.maxIndexedChars)
	if doc.Body == "" {
		return domain.IngestItem{}, fmt.Errorf("post %s has an empty body", p.id)
	}
	return domain.IngestItem{DocID: docID, Fingerprint: fingerprint, Document: doc}, nil
}

func (c *Connector) postURL(p post) string {
	if c.siteURL == "" {
		return ""
	}
	if p.postType == postTypeAnswer {
		return c.siteURL + "/a/" + p.id
	}
	return c.siteURL + "/q/" + p.id
}

// Close marks the connector closed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func fingerprint(p post) string {
	h := xxhash.New()
	for i, part := range []string{p.id, p.lastActivity, p.title, p.body} {
		if i > 0 {
			_, _ = h.WriteString("\x00")
		}
		_, _ = h.WriteString(part)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
