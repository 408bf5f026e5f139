// Package domain defines the core entities for bunker-search.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised local document ready for indexing
//   - ManifestEntry: What has already been indexed, per source
//   - SourceDescriptor: A configured local source
//   - Collection: A remote Kiwix collection discovered at runtime
//   - Hit / SearchResponse: Query-time results
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
