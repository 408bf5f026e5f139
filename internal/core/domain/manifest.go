package domain

import "time"

// ManifestEntry records that a document was indexed with a given fingerprint.
type ManifestEntry struct {
	// Source is the local source name.
	Source string

	// DocID identifies the document within the source.
	DocID string

	// Fingerprint is the fingerprint the document was indexed with.
	Fingerprint string

	// IndexedAt is when the document was last indexed.
	IndexedAt time.Time
}

// IndexStats summarises one indexing pass over one source.
type IndexStats struct {
	// PassID identifies the pass in logs.
	PassID string

	// Source is the local source name.
	Source string

	// Scanned counts items the adapter enumerated.
	Scanned int

	// Indexed counts documents written to the index.
	Indexed int

	// Unchanged counts items skipped on a manifest match.
	Unchanged int

	// Invalid counts malformed items skipped by the adapter.
	Invalid int

	// Removed counts documents pruned because they disappeared.
	Removed int

	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Changed reports whether the pass wrote anything.
func (s IndexStats) Changed() bool {
	return s.Indexed > 0 || s.Removed > 0
}
