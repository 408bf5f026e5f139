// Package filesystem implements the ingestion adapter for directory trees.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/normalisers"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.Adapter = (*Connector)(nil)
	_ driven.Watcher = (*Connector)(nil)
)

// Connector walks a directory tree and emits one document per text file.
type Connector struct {
	source          string
	rootPath        string
	extensions      map[string]struct{}
	followSymlinks  bool
	maxIndexedChars int
	normalisers     driven.NormaliserRegistry

	mu      sync.Mutex
	closed  bool
	watches []func()
}

// New creates a filesystem connector for a validated descriptor.
func New(desc domain.SourceDescriptor, registry driven.NormaliserRegistry, maxIndexedChars int) *Connector {
	exts := make(map[string]struct{}, len(desc.Extensions))
	for _, ext := range desc.Extensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	if registry == nil {
		registry = normalisers.Default()
	}
	return &Connector{
		source:          desc.Name,
		rootPath:        desc.Path,
		extensions:      exts,
		followSymlinks:  desc.FollowSymlinks,
		maxIndexedChars: maxIndexedChars,
		normalisers:     registry,
	}
}

// Kind returns the source kind.
func (c *Connector) Kind() domain.SourceKind {
	return domain.SourceKindFilesystem
}

// Source returns the configured source name.
func (c *Connector) Source() string {
	return c.source
}

// Validate checks the root exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("source %s: %w", c.source, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source %s: %s is not a directory", domain.ErrInvalidConfig, c.source, c.rootPath)
	}
	if _, err := os.ReadDir(c.rootPath); err != nil {
		return fmt.Errorf("source %s: %w", c.source, err)
	}
	return nil
}

// Ingest walks the tree in lexical order.
func (c *Connector) Ingest(ctx context.Context, skip driven.SkipChecker) (<-chan domain.IngestItem, <-chan error) {
	items := make(chan domain.IngestItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		if c.isClosed() {
			errs <- domain.ErrAdapterClosed
			return
		}
		if skip == nil {
			skip = driven.NeverSkip
		}

		w := &walk{c: c, ctx: ctx, skip: skip, items: items, visited: make(map[string]struct{})}
		if err := w.dir(c.rootPath, ""); err != nil {
			errs <- err
			return
		}
		errs <- &driven.IngestComplete{Scanned: w.scanned, Invalid: w.invalid, FullyEnumerated: true}
	}()

	return items, errs
}

// walk holds the state of one Ingest pass.
type walk struct {
	c       *Connector
	ctx     context.Context
	skip    driven.SkipChecker
	items   chan<- domain.IngestItem
	visited map[string]struct{}

	scanned int
	invalid int
}

// dir walks one directory. rel is its slash-separated path below the root.
func (w *walk) dir(path, rel string) error {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		if _, seen := w.visited[real]; seen {
			return nil
		}
		w.visited[real] = struct{}{}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if rel == "" {
			return fmt.Errorf("source %s: %w", w.c.source, err)
		}
		logger.Warn("source %s: skipping directory %s: %v", w.c.source, rel, err)
		return nil
	}

	for _, entry := range entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if isHidden(entry.Name()) {
			continue
		}

		childPath := filepath.Join(path, entry.Name())
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warn("source %s: skipping %s: %v", w.c.source, childRel, err)
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if !w.c.followSymlinks {
				continue
			}
			if info, err = os.Stat(childPath); err != nil {
				logger.Warn("source %s: skipping broken symlink %s: %v", w.c.source, childRel, err)
				continue
			}
		}

		switch {
		case info.IsDir():
			if err := w.dir(childPath, childRel); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := w.file(childPath, childRel, info); err != nil {
				return err
			}
		}
	}
	return nil
}

// file emits one file. Only a cancelled context is returned as an error.
func (w *walk) file(path, rel string, info os.FileInfo) error {
	if !w.c.allowed(rel) {
		return nil
	}
	w.scanned++

	docID := "fs:" + w.c.source + ":" + rel
	prefix := statPrefix(info)

	if recorded, ok := w.skip.Recorded(w.ctx, docID); ok && strings.HasPrefix(recorded, prefix+":") {
		return w.emit(domain.IngestItem{DocID: docID, Fingerprint: recorded, Unchanged: true})
	}

	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("source %s: unable to read %s: %v", w.c.source, rel, err)
		w.invalid++
		return nil
	}
	if isBinary(content) {
		logger.Debug("source %s: skipping binary file %s", w.c.source, rel)
		w.invalid++
		return nil
	}

	fingerprint := prefix + ":" + strconv.FormatUint(xxhash.Sum64(content), 16)

	result, err := w.c.normalisers.Normalise(w.ctx, &domain.RawDocument{
		Source:   w.c.source,
		URI:      rel,
		MIMEType: normalisers.MIMETypeForPath(rel),
		Content:  content,
	})
	if err != nil {
		logger.Warn("source %s: unable to normalise %s: %v", w.c.source, rel, err)
		w.invalid++
		return nil
	}

	title := result.Title
	if strings.TrimSpace(title) == "" {
		title = rel
	}
	doc := domain.NewDocument(w.c.source, docID, title, result.Body, rel, "", fingerprint, w.c.maxIndexedChars)
	if doc.Body == "" {
		logger.Debug("source %s: skipping empty file %s", w.c.source, rel)
		w.invalid++
		return nil
	}

	return w.emit(domain.IngestItem{DocID: docID, Fingerprint: fingerprint, Document: doc})
}

func (w *walk) emit(item domain.IngestItem) error {
	select {
	case <-w.ctx.Done():
		return w.ctx.Err()
	case w.items <- item:
		return nil
	}
}

func (c *Connector) allowed(rel string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rel), "."))
	if ext == "" {
		return false
	}
	_, ok := c.extensions[ext]
	return ok
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close stops any active watches.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, stop := range c.watches {
		stop()
	}
	c.watches = nil
	return nil
}

// statPrefix is the size:mtime part of a fingerprint.
func statPrefix(info os.FileInfo) string {
	return strconv.FormatInt(info.Size(), 10) + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
}

// isBinary treats content with NUL bytes or invalid UTF-8 as binary.
func isBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
