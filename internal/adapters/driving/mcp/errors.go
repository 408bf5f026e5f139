// Package mcp provides an MCP (Model Context Protocol) server adapter for
// bunker-search. It lets AI assistants query the local shards and the Kiwix
// federation through the same query engine as the HTTP API.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
