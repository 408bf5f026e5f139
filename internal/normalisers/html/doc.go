// Package html provides a Normaliser implementation for HTML documents.
// It extracts readable text with goquery, dropping scripts, styles and
// other non-content elements, and takes the title from <title>.
package html
