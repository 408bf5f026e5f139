package sqlite

import (
	"encoding/binary"
	"errors"
	"sort"

	"github.com/custodia-labs/bunker-search/internal/analysis"
)

// posting is one term's occurrences in one document.
type posting struct {
	titleTF   int
	bodyTF    int
	positions []int
}

// buildPostings analyzes a document into per-term postings. Body positions
// are shifted past the title with a one-position gap so phrases do not
// match across the two fields. Returns the postings and the token count.
func buildPostings(a *analysis.Analyzer, title, body string) (map[string]*posting, int) {
	postings := make(map[string]*posting)
	get := func(term string) *posting {
		p, ok := postings[term]
		if !ok {
			p = &posting{}
			postings[term] = p
		}
		return p
	}

	offset := 0
	titleTokens := a.Tokens(title)
	for _, t := range titleTokens {
		p := get(t.Term)
		p.titleTF++
		p.positions = append(p.positions, t.Position)
		offset = t.Position + 2
	}

	bodyTokens := a.Tokens(body)
	for _, t := range bodyTokens {
		p := get(t.Term)
		p.bodyTF++
		p.positions = append(p.positions, offset+t.Position)
	}

	return postings, len(titleTokens) + len(bodyTokens)
}

// sortedTerms returns the postings' terms in ascending order.
func sortedTerms(postings map[string]*posting) []string {
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// encodePositions stores ascending positions as uvarint deltas.
func encodePositions(positions []int) []byte {
	buf := make([]byte, 0, len(positions)*2)
	prev := 0
	for _, p := range positions {
		buf = binary.AppendUvarint(buf, uint64(p-prev))
		prev = p
	}
	return buf
}

var errBadPositions = errors.New("malformed positions blob")

// decodePositions reverses encodePositions.
func decodePositions(buf []byte) ([]int, error) {
	var positions []int
	prev := 0
	for len(buf) > 0 {
		delta, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, errBadPositions
		}
		prev += int(delta)
		positions = append(positions, prev)
		buf = buf[n:]
	}
	return positions, nil
}
