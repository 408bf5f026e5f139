package services

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService lists the configured local sources and the discovered
// Kiwix collections.
type SourceService struct {
	settings   *domain.Settings
	federation driven.FederationClient
}

// NewSourceService creates a new source service.
// The federation parameter is optional (can be nil).
func NewSourceService(settings *domain.Settings, federation driven.FederationClient) *SourceService {
	return &SourceService{
		settings:   settings,
		federation: federation,
	}
}

// Names returns local names in configuration order, then "kiwix" and one
// "kiwix:<id>" per collection when federation is enabled.
func (s *SourceService) Names(ctx context.Context) ([]string, error) {
	names := s.settings.LocalSourceNames()
	if s.federation == nil {
		return names, nil
	}

	names = append(names, string(domain.SourceKindKiwix))
	for _, c := range s.federation.Collections(ctx) {
		names = append(names, c.SourceName())
	}
	return names, nil
}

// Local returns a copy of the configured local sources.
func (s *SourceService) Local(_ context.Context) ([]domain.SourceDescriptor, error) {
	out := make([]domain.SourceDescriptor, len(s.settings.Sources))
	copy(out, s.settings.Sources)
	return out, nil
}

// Collections returns the discovered Kiwix collections, or none when
// federation is disabled.
func (s *SourceService) Collections(ctx context.Context) ([]domain.Collection, error) {
	if s.federation == nil {
		return []domain.Collection{}, nil
	}
	return s.federation.Collections(ctx), nil
}
