// Package analysis turns text into index terms. The same Analyzer is used at
// index time and at query time, so both sides agree on tokenisation,
// stopwords and stemming.
package analysis
