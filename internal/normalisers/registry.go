package normalisers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/normalisers/html"
	"github.com/custodia-labs/bunker-search/internal/normalisers/markdown"
	"github.com/custodia-labs/bunker-search/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to normalisers by MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
	fallback    driven.Normaliser
}

// NewRegistry creates an empty registry that falls back to plain text.
func NewRegistry() *Registry {
	return &Registry{fallback: plaintext.New()}
}

// Default returns a registry with the HTML, Markdown and plain text normalisers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser, keeping the list ordered by descending priority.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise runs the best normaliser for raw.MIMEType.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	return r.pick(raw.MIMEType).Normalise(ctx, raw)
}

func (r *Registry) pick(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if t == mimeType {
				return n
			}
		}
	}
	return r.fallback
}

// SupportedMIMETypes returns every MIME type a registered normaliser handles.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

var extensionMIMETypes = map[string]string{
	"html":     "text/html",
	"htm":      "text/html",
	"xhtml":    "application/xhtml+xml",
	"md":       "text/markdown",
	"markdown": "text/markdown",
	"json":     "application/json",
	"jsonl":    "application/x-ndjson",
	"xml":      "application/xml",
	"csv":      "text/csv",
	"tsv":      "text/tab-separated-values",
}

// MIMETypeForPath maps a file extension to a MIME type, defaulting to text/plain.
func MIMETypeForPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if t, ok := extensionMIMETypes[ext]; ok {
		return t
	}
	return "text/plain"
}
