package driving

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// SourceService lists what can be searched.
type SourceService interface {
	// Names returns local source names, then "kiwix" and "kiwix:<id>" for
	// each discovered collection when federation is enabled.
	Names(ctx context.Context) ([]string, error)

	// Local returns the configured local sources.
	Local(ctx context.Context) ([]domain.SourceDescriptor, error)

	// Collections returns the discovered Kiwix collections.
	Collections(ctx context.Context) ([]domain.Collection, error)
}
