package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		answer := "Ownership rules are checked at compile time."
		mockSearch := &mockSearchService{
			response: &domain.SearchResponse{
				TotalHits: 3,
				Hits: []domain.Hit{{
					Score:    0.95,
					DocID:    "jsonl:notes:1",
					Source:   "notes",
					Title:    "Borrow Checker",
					Preview:  "Rust's borrow checker enforces ownership",
					Location: "/srv/notes.jsonl#1",
					URL:      "https://example.org/borrow",
				}},
				Answer: &answer,
			},
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		input := SearchInput{Query: "borrow", Limit: 5, Offset: 2, Source: "notes", Answer: true}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 3, output.TotalHits)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "jsonl:notes:1", output.Results[0].DocID)
		assert.Equal(t, "notes", output.Results[0].Source)
		assert.Equal(t, "Borrow Checker", output.Results[0].Title)
		assert.Equal(t, "/srv/notes.jsonl#1", output.Results[0].Location)
		assert.Equal(t, "https://example.org/borrow", output.Results[0].URL)
		assert.Equal(t, 0.95, output.Results[0].Score)
		require.NotNil(t, output.Answer)
		assert.Equal(t, answer, *output.Answer)

		assert.Equal(t, domain.SearchRequest{
			Query: "borrow", Source: "notes", Limit: 5, Offset: 2, WantAnswer: true,
		}, mockSearch.lastReq)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Empty(t, output.Results)
		assert.Nil(t, output.Answer)
		assert.Equal(t, defaultLimit, mockSearch.lastReq.Limit)
	})

	t.Run("negative offset is treated as zero", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test", Offset: -4})

		require.NoError(t, err)
		assert.Zero(t, mockSearch.lastReq.Offset)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("search failed")}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}
