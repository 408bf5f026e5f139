package domain

// RawDocument represents opaque bytes read by an adapter.
// It is the adapter's input to the normaliser registry.
type RawDocument struct {
	// Source is the name of the source the bytes came from.
	Source string

	// URI is the original location (file path, row reference).
	URI string

	// MIMEType is the content type (e.g., "text/html").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
