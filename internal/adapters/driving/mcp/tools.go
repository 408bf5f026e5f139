package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// defaultLimit is the page size when the caller gives none.
const defaultLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the search query; quote phrases and prefix a word with - to exclude it"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of results to skip"`
	Source string `json:"source,omitempty" jsonschema:"restrict to a local source name, kiwix, or kiwix:<collection>"`
	Answer bool   `json:"answer,omitempty" jsonschema:"also synthesise a short answer from the top results"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	TotalHits int                  `json:"total_hits"`
	Count     int                  `json:"count"`
	Results   []SearchResultOutput `json:"results"`
	Answer    *string              `json:"answer,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocID    string  `json:"doc_id"`
	Source   string  `json:"source"`
	Title    string  `json:"title"`
	Preview  string  `json:"preview"`
	Location string  `json:"location"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search local offline datasets and Kiwix collections",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	resp, err := s.ports.Search.Search(ctx, domain.SearchRequest{
		Query:      input.Query,
		Source:     input.Source,
		Limit:      limit,
		Offset:     max(input.Offset, 0),
		WantAnswer: input.Answer,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		TotalHits: resp.TotalHits,
		Count:     len(resp.Hits),
		Results:   make([]SearchResultOutput, len(resp.Hits)),
		Answer:    resp.Answer,
	}
	for i, h := range resp.Hits {
		output.Results[i] = SearchResultOutput{
			DocID:    h.DocID,
			Source:   h.Source,
			Title:    h.Title,
			Preview:  h.Preview,
			Location: h.Location,
			URL:      h.URL,
			Score:    h.Score,
		}
	}

	return nil, output, nil
}
