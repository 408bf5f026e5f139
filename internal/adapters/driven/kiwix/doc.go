// Package kiwix implements driven.FederationClient against a kiwix-serve
// instance.
//
// Collections are discovered from the OPDS catalog at
// /catalog/v2/entries and cached as an immutable snapshot that is swapped
// atomically on refresh. Queries go to /search, one request per collection,
// fanned out on a bounded worker pool and paced by a rate limiter. Result
// pages are HTML and are parsed with goquery.
package kiwix
