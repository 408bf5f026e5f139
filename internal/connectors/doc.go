// Package connectors provides the ingestion adapters for local sources.
// Each adapter knows how to enumerate one source kind (filesystem tree,
// JSON-lines file, Stack Exchange Posts.xml dump) and turn its items into
// documents, skipping items whose fingerprint the manifest already holds.
//
// Adapters are created by the Factory from a SourceDescriptor.
package connectors
