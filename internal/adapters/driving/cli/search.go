package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

var (
	searchLimit  int
	searchOffset int
	searchSource string
	searchAnswer bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Searches every local source and Kiwix collection and prints the merged
results. Quote phrases and prefix a word with - to exclude it.

Restrict the search with --source: a local source name, "kiwix" for every
Kiwix collection, or "kiwix:<collection>".`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict to one source")
	searchCmd.Flags().BoolVar(&searchAnswer, "answer", false, "synthesise an answer from the top results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	resp, err := searchService.Search(cmd.Context(), domain.SearchRequest{
		Query:      args[0],
		Source:     searchSource,
		Limit:      searchLimit,
		Offset:     searchOffset,
		WantAnswer: searchAnswer,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

type jsonHit struct {
	Score    float64 `json:"score"`
	DocID    string  `json:"doc_id"`
	Source   string  `json:"source"`
	Title    string  `json:"title"`
	Preview  string  `json:"preview"`
	Location string  `json:"location"`
	URL      string  `json:"url,omitempty"`
}

type jsonResponse struct {
	TotalHits int       `json:"total_hits"`
	Hits      []jsonHit `json:"hits"`
	Answer    *string   `json:"answer"`
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	out := jsonResponse{
		TotalHits: resp.TotalHits,
		Hits:      make([]jsonHit, len(resp.Hits)),
		Answer:    resp.Answer,
	}
	for i, h := range resp.Hits {
		out.Hits[i] = jsonHit(h)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Answer != nil {
		cmd.Println("Answer:")
		cmd.Printf("  %s\n\n", *resp.Answer)
	}

	if len(resp.Hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%d of %d):\n\n", len(resp.Hits), resp.TotalHits)
	for i, h := range resp.Hits {
		title := h.Title
		if title == "" {
			title = h.DocID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, h.Score)
		cmd.Printf("      Source: %s\n", h.Source)
		if h.Preview != "" {
			cmd.Printf("      %s\n", h.Preview)
		}
		if h.URL != "" {
			cmd.Printf("      %s\n", h.URL)
		} else if h.Location != "" {
			cmd.Printf("      %s\n", h.Location)
		}
		cmd.Println()
	}
	return nil
}
