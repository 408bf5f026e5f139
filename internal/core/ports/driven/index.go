package driven

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// ManifestStore tracks what has been indexed per source.
// Only the indexing pass mutates it.
type ManifestStore interface {
	// Lookup returns the recorded fingerprint for a document.
	Lookup(ctx context.Context, source, docID string) (fingerprint string, found bool, err error)

	// Record creates or updates an entry.
	Record(ctx context.Context, entry domain.ManifestEntry) error

	// Prune deletes entries of source whose doc ID is not in seen,
	// returning the removed doc IDs in ascending order.
	Prune(ctx context.Context, source string, seen map[string]struct{}) ([]string, error)

	// Count returns the number of entries for a source.
	Count(ctx context.Context, source string) (int, error)
}

// IndexEngine is the local inverted index, one shard per source.
type IndexEngine interface {
	// OpenWriter acquires the single-writer lock on a source's shard.
	// Returns domain.ErrIndexLocked if another pass holds it.
	OpenWriter(ctx context.Context, source string) (IndexWriter, error)

	// Search runs a query against the last committed state of a shard.
	// A shard that was never built yields an empty result; an unreadable
	// one yields an error wrapping domain.ErrIndexCorrupt.
	Search(ctx context.Context, source, query string, limit int) (*domain.BranchResult, error)

	// Close releases cached read handles.
	Close() error
}

// IndexWriter mutates one shard. Changes become visible to Search on Commit.
type IndexWriter interface {
	// Manifest returns the shard's manifest, bound to the writer's transaction.
	Manifest() ManifestStore

	// IndexDocument inserts or replaces a document's postings and metadata.
	IndexDocument(ctx context.Context, doc *domain.Document) error

	// RemoveDocument deletes a document's postings and metadata.
	RemoveDocument(ctx context.Context, docID string) error

	// Reset deletes every document and manifest entry of the shard.
	Reset(ctx context.Context) error

	// Commit makes buffered changes durable and visible.
	Commit(ctx context.Context) error

	// Close discards uncommitted changes and releases the lock.
	Close() error
}
