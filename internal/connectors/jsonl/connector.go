// Package jsonl implements the ingestion adapter for JSON-lines files.
// Each line holds one object; field names for id, title, body and url are
// configurable.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// MaxLineBytes bounds a single record. Longer lines are skipped as invalid.
const MaxLineBytes = 16 << 20

// Ensure Connector implements the interface.
var _ driven.Adapter = (*Connector)(nil)

// Connector reads one JSON object per line.
type Connector struct {
	source          string
	path            string
	idField         string
	titleField      string
	bodyField       string
	urlField        string
	maxIndexedChars int

	mu     sync.Mutex
	closed bool
}

// New creates a JSON-lines connector for a validated descriptor.
func New(desc domain.SourceDescriptor, maxIndexedChars int) *Connector {
	return &Connector{
		source:          desc.Name,
		path:            desc.Path,
		idField:         desc.IDField,
		titleField:      desc.TitleField,
		bodyField:       desc.BodyField,
		urlField:        desc.URLField,
		maxIndexedChars: maxIndexedChars,
	}
}

// Kind returns the source kind.
func (c *Connector) Kind() domain.SourceKind {
	return domain.SourceKindJSONL
}

// Source returns the configured source name.
func (c *Connector) Source() string {
	return c.source
}

// Validate checks the file exists and is readable.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("source %s: %w", c.source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("source %s: %w", c.source, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: source %s: %s is a directory", domain.ErrInvalidConfig, c.source, c.path)
	}
	return nil
}

// Ingest reads the file line by line. Malformed lines are skipped with a warning.
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

func (c *Connector) ingest(ctx context.Context, skip driven.SkipChecker, items chan<- domain.IngestItem) (*driven.IngestComplete, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", c.source, err)
	}
	defer f.Close()

	complete := &driven.IngestComplete{FullyEnumerated: true}
	file := filepath.Base(c.path)
	r := bufio.NewReaderSize(f, 64<<10)

	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, tooLong, err := readLine(r)
		if errors.Is(err, io.EOF) && len(line) == 0 && !tooLong {
			return complete, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("source %s: reading line %d: %w", c.source, lineNo, err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 && !tooLong {
			continue
		}
		complete.Scanned++

		if tooLong {
			logger.Warn("source %s: %s:%d exceeds %d bytes, skipping", c.source, file, lineNo, MaxLineBytes)
			complete.Invalid++
			continue
		}

		item, err := c.item(ctx, skip, line, file, lineNo)
		if err != nil {
			logger.Warn("source %s: %s:%d: %v, skipping", c.source, file, lineNo, err)
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

var (
	errNotObject   = errors.New("line is not a JSON object")
	errInvalidJSON = errors.New("invalid JSON")
	errEmptyBody   = errors.New("empty body")
)

// item derives one line. The id is extracted first so unchanged lines
// skip full parsing; changed lines must be strictly valid JSON.
func (c *Connector) item(ctx context.Context, skip driven.SkipChecker, line []byte, file string, lineNo int) (domain.IngestItem, error) {
	if line[0] != '{' {
		return domain.IngestItem{}, errNotObject
	}

	fingerprint := strconv.FormatUint(xxhash.Sum64(line), 16)

	id, err := scalarField(line, c.idField)
	if err != nil {
		return domain.IngestItem{}, err
	}
	if id == "" {
		id = strconv.Itoa(lineNo)
	}
	docID := "jsonl:" + c.source + ":" + id

	if driven.Unchanged(ctx, skip, docID, fingerprint) {
		return domain.IngestItem{DocID: docID, Fingerprint: fingerprint, Unchanged: true}, nil
	}
	if !json.Valid(line) {
		return domain.IngestItem{}, errInvalidJSON
	}

	fields := map[string]string{}
	wanted := map[string]struct{}{c.titleField: {}, c.bodyField: {}, c.urlField: {}}
	err = jsonparser.ObjectEach(line, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		if _, ok := wanted[k]; !ok {
			return nil
		}
		s, err := scalarString(value, dataType)
		if err != nil {
			return err
		}
		fields[k] = s
		return nil
	})
	if err != nil {
		return domain.IngestItem{}, fmt.Errorf("invalid JSON: %w", err)
	}

	title := fields[c.titleField]
	if strings.TrimSpace(title) == "" {
		title = "Document " + id
	}
	location := file + "#L" + strconv.Itoa(lineNo)
	url := strings.TrimSpace(fields[c.urlField])

	doc := domain.NewDocument(c.source, docID, title, fields[c.bodyField], location, url, fingerprint, c.maxIndexedChars)
	if doc.Body == "" {
		return domain.IngestItem{}, errEmptyBody
	}
	return domain.IngestItem{DocID: docID, Fingerprint: fingerprint, Document: doc}, nil
}

// Close marks the connector closed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// scalarField returns a top-level string, number or boolean field as text.
// Missing fields and other types yield "".
func scalarField(line []byte, key string) (string, error) {
	value, dataType, _, err := jsonparser.Get(line, key)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return scalarString(value, dataType)
}

func scalarString(value []byte, dataType jsonparser.ValueType) (string, error) {
	switch dataType {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return "", fmt.Errorf("invalid JSON string: %w", err)
		}
		return s, nil
	case jsonparser.Number, jsonparser.Boolean:
		return string(value), nil
	default:
		return "", nil
	}
}

// readLine reads one line without its terminator. A line longer than
// MaxLineBytes is consumed and reported as tooLong.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := r.ReadLine()
		if !tooLong {
			if len(line)+len(chunk) > MaxLineBytes {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err != nil || !isPrefix {
			return line, tooLong, err
		}
	}
}
