package domain

// Document is a local document after normalisation, ready for indexing.
// Body is indexed but never stored verbatim.
type Document struct {
	// DocID is stable and unique within its source.
	DocID string

	// Source is the name of the local source that produced the document.
	Source string

	// Title is the human-readable title.
	Title string

	// Body is the indexable text after markup stripping and truncation.
	Body string

	// Preview is a short excerpt of Body kept for result display.
	Preview string

	// Location locates the item inside its source (relative path, line, row).
	Location string

	// URL is an optional external link.
	URL string

	// Fingerprint is derived from the raw content and drives change detection.
	Fingerprint string
}

// IngestItem is one element of an adapter's output stream.
// Unchanged items carry only DocID and Fingerprint: the adapter matched the
// manifest and skipped deriving indexable content.
type IngestItem struct {
	// DocID identifies the item within its source.
	DocID string

	// Fingerprint is the item's current fingerprint.
	Fingerprint string

	// Unchanged reports a manifest hit.
	Unchanged bool

	// Document is set when Unchanged is false.
	Document *Document
}
