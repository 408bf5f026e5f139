package driving

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search fans a query out to local and federated sources, merges and
	// paginates the hits and optionally synthesises an answer.
	// Branch failures are absorbed; the response is always well formed.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
