package mcp

import (
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs queries.
	Search driving.SearchService

	// Source lists local sources and Kiwix collections.
	Source driving.SourceService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Source is optional; the sources resource is then empty.
	return nil
}
