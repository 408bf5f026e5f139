package driven

import (
	"context"
	"errors"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// Adapter produces documents from one local source.
// Each source kind (filesystem, jsonl, stack_exchange_xml) implements this interface.
type Adapter interface {
	// Kind returns the source kind.
	Kind() domain.SourceKind

	// Source returns the configured source name.
	Source() string

	// Validate checks the source path exists and is readable.
	Validate(ctx context.Context) error

	// Ingest enumerates the source. Items whose fingerprint matches the one
	// the SkipChecker recorded are emitted with Unchanged set and no Document.
	//
	// The item channel is closed when enumeration ends. Successful completion
	// is reported by an IngestComplete sentinel on the error channel; any other
	// error on that channel aborts the pass for this source.
	Ingest(ctx context.Context, skip SkipChecker) (<-chan domain.IngestItem, <-chan error)

	// Close releases resources.
	Close() error
}

// Watcher is implemented by adapters that can signal changes to their source.
type Watcher interface {
	// Watch sends a value whenever the source may have changed.
	// Bursts of filesystem events are coalesced. The channel is closed
	// when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// AdapterFactory creates adapters from source descriptors.
type AdapterFactory interface {
	// Create returns the adapter for the descriptor's kind.
	Create(desc domain.SourceDescriptor, maxIndexedChars int) (Adapter, error)
}

// SkipChecker exposes what the manifest recorded for a source.
type SkipChecker interface {
	// Recorded returns the fingerprint docID was last indexed with.
	Recorded(ctx context.Context, docID string) (fingerprint string, found bool)
}

// SkipFunc adapts a function to SkipChecker.
type SkipFunc func(ctx context.Context, docID string) (string, bool)

// Recorded implements SkipChecker.
func (f SkipFunc) Recorded(ctx context.Context, docID string) (string, bool) {
	return f(ctx, docID)
}

// NeverSkip reports nothing as recorded, so every item is re-derived.
// Used for rebuilds.
var NeverSkip SkipChecker = SkipFunc(func(context.Context, string) (string, bool) { return "", false })

// ManifestSkip reads recorded fingerprints for source from m. A failed lookup
// counts as not recorded and is reported to onErr when it is non-nil.
func ManifestSkip(m ManifestStore, source string, onErr func(docID string, err error)) SkipChecker {
	return SkipFunc(func(ctx context.Context, docID string) (string, bool) {
		fp, found, err := m.Lookup(ctx, source, docID)
		if err != nil {
			if onErr != nil {
				onErr(docID, err)
			}
			return "", false
		}
		return fp, found
	})
}

// Unchanged reports whether docID was recorded with exactly fingerprint.
func Unchanged(ctx context.Context, skip SkipChecker, docID, fingerprint string) bool {
	recorded, ok := skip.Recorded(ctx, docID)
	return ok && recorded == fingerprint
}

// IngestComplete is sent on the error channel when enumeration finishes.
type IngestComplete struct {
	// Scanned counts every item the adapter enumerated, valid or not.
	Scanned int

	// Invalid counts malformed items that were skipped.
	Invalid int

	// FullyEnumerated is true when every item of the source was seen,
	// which makes pruning of unseen manifest entries safe.
	FullyEnumerated bool
}

// Error implements the error interface.
// This allows IngestComplete to be sent on the error channel.
func (*IngestComplete) Error() string {
	return "ingest complete"
}

// IsIngestComplete checks if an error is actually a successful completion.
// Returns the IngestComplete and true if it is, nil and false otherwise.
func IsIngestComplete(err error) (*IngestComplete, bool) {
	var ic *IngestComplete
	if errors.As(err, &ic) {
		return ic, true
	}
	return nil, false
}
