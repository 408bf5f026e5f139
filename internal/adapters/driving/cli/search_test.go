package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

func runRoot(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search indexed documents", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runRoot("search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runRoot("search", "borrow checker")

	require.NoError(t, err)
	assert.Contains(t, out, "Results (1 of 1):")
	assert.Contains(t, out, "[1] Borrow Checker (1.00)")
	assert.Contains(t, out, "Source: notes")
	assert.Contains(t, out, "notes.jsonl#1")
	assert.Equal(t, "borrow checker", ts.search.lastReq.Query)
}

func TestSearchCmd_PassesFlags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runRoot("search", "-n", "5", "--offset", "10", "--source", "kiwix", "--answer", "query")

	require.NoError(t, err)
	assert.Equal(t, domain.SearchRequest{
		Query: "query", Source: "kiwix", Limit: 5, Offset: 10, WantAnswer: true,
	}, ts.search.lastReq)
}

func TestSearchCmd_PrintsAnswer(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	answer := "Ownership is checked at compile time [notes | notes.jsonl#1]."
	ts.search.response.Answer = &answer

	out, err := runRoot("search", "--answer", "ownership")

	require.NoError(t, err)
	assert.Contains(t, out, "Answer:")
	assert.Contains(t, out, answer)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runRoot("search", "--json", "test query")

	require.NoError(t, err)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.TotalHits)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "jsonl:notes:1", resp.Hits[0].DocID)
	assert.Nil(t, resp.Answer)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	defer withoutServices()()
	defer resetFlags()

	_, err := runRoot("search", "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.search.err = errBoom

	_, err := runRoot("search", "test")

	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "search failed")
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchJSON(rootCmd, domain.EmptyResponse())

	assert.NoError(t, err)
	assert.JSONEq(t, `{"total_hits":0,"hits":[],"answer":null}`, buf.String())
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchTable(rootCmd, domain.EmptyResponse())

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found")
}

func TestOutputSearchTable_WithoutTitle(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchTable(rootCmd, &domain.SearchResponse{
		TotalHits: 1,
		Hits:      []domain.Hit{{DocID: "A/Rust", Source: "kiwix:wiki", Score: 0.75, URL: "http://kiwix/content/wiki/A/Rust"}},
	})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "A/Rust")
	assert.Contains(t, buf.String(), "0.75")
	assert.Contains(t, buf.String(), "http://kiwix/content/wiki/A/Rust")
}
