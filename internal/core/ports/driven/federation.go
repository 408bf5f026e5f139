package driven

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// FederationClient queries a remote Kiwix server live.
// This is an optional service - when nil, only local sources are searched.
type FederationClient interface {
	// Collections returns the current snapshot of discovered collections.
	// Reading never blocks on a refresh once a snapshot exists.
	Collections(ctx context.Context) []domain.Collection

	// Refresh re-reads the catalog and swaps the snapshot.
	Refresh(ctx context.Context) error

	// Search queries one collection, or every collection when collectionID
	// is empty. Scores are normalised per collection. Failing collections
	// contribute nothing; they never fail the call.
	Search(ctx context.Context, collectionID, query string, limit, offset int) (*domain.BranchResult, error)

	// Close releases resources.
	Close() error
}
