package domain

import (
	"cmp"
	"slices"
)

// Hit is one ranked result. Hits are built fresh per query and never persisted.
type Hit struct {
	// Score is normalised within the branch that produced the hit, in (0, 1].
	Score float64

	// DocID identifies the document within its source.
	DocID string

	// Source is a local source name or "kiwix:<collection>".
	Source string

	// Title is the human-readable title.
	Title string

	// Preview is a short excerpt.
	Preview string

	// Location locates the hit within its source.
	Location string

	// URL is an optional external link.
	URL string
}

// SearchRequest is the input to the query engine.
type SearchRequest struct {
	// Query is the raw query text.
	Query string

	// Source is the unparsed source filter ("", a local name, "kiwix", "kiwix:<id>").
	Source string

	// Limit is the page size. Zero selects the configured default.
	Limit int

	// Offset is the number of merged hits to skip.
	Offset int

	// WantAnswer requests answer synthesis from the top hits.
	WantAnswer bool
}

// SearchResponse is the output of the query engine.
type SearchResponse struct {
	// TotalHits counts every hit across branches before pagination.
	TotalHits int

	// Hits is the requested page.
	Hits []Hit

	// Answer is the synthesised answer, nil when absent.
	Answer *string
}

// EmptyResponse returns a response with no hits and no answer.
func EmptyResponse() *SearchResponse {
	return &SearchResponse{Hits: []Hit{}}
}

// BranchResult is the output of one retrieval branch.
type BranchResult struct {
	// Total is the number of hits the branch can serve.
	Total int

	// Hits are ordered by score descending.
	Hits []Hit
}

// NormaliseScores rescales scores in place to score/max, so the best hit of
// the branch scores 1. Non-positive maxima map every hit to 1.
func NormaliseScores(hits []Hit) {
	if len(hits) == 0 {
		return
	}
	maxScore := hits[0].Score
	for _, h := range hits[1:] {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	for i := range hits {
		if maxScore <= 0 {
			hits[i].Score = 1
			continue
		}
		hits[i].Score /= maxScore
	}
}

// CompareHits orders hits by score descending, then source, then doc ID.
func CompareHits(a, b Hit) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return cmp.Compare(a.DocID, b.DocID)
}

// SortHits sorts hits in merge order.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, CompareHits)
}

// Paginate returns hits[offset:offset+limit], clamped to the slice bounds.
func Paginate(hits []Hit, offset, limit int) []Hit {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(hits) || limit <= 0 {
		return []Hit{}
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
