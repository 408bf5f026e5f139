package driving

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// IndexOptions configures an indexing pass.
type IndexOptions struct {
	// Rebuild discards the shard and reindexes everything.
	Rebuild bool
}

// IndexService runs indexing passes over local sources.
type IndexService interface {
	// Index runs one incremental pass over a single source.
	Index(ctx context.Context, source string, opts IndexOptions) (*domain.IndexStats, error)

	// IndexAll runs a pass over every configured source. A failing source
	// does not stop the others; the joined error lists every failure.
	IndexAll(ctx context.Context, opts IndexOptions) ([]domain.IndexStats, error)

	// Watch reindexes sources as they change until ctx is done, calling
	// report after each pass.
	Watch(ctx context.Context, report func(domain.IndexStats)) error
}
