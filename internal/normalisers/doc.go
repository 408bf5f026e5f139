// Package normalisers turns raw file bytes into a title and a plain-text body.
// Each normaliser handles a set of MIME types; the Registry picks the one
// with the highest priority for a document and falls back to plain text.
package normalisers
