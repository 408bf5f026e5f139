package sqlite

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/custodia-labs/bunker-search/internal/analysis"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// maxParams bounds the number of placeholders in one IN (...) query.
const maxParams = 500

// candidate accumulates a document's score while a query is evaluated.
type candidate struct {
	key       int64
	docID     string
	score     float64
	matched   int
	positions map[string][]int
}

// Search runs query against the last committed state of a source's shard
// and returns up to limit hits with raw scores, plus the total match count.
//
// A document's score is coverage * sum over matched terms of
// (1 + ln(2*title_tf + body_tf)) * ln(1 + N/df), where coverage is the
// fraction of query terms it contains.
func (e *Engine) Search(ctx context.Context, source, query string, limit int) (*domain.BranchResult, error) {
	q := e.analyzer.ParseQuery(query)
	if q.IsEmpty() {
		return &domain.BranchResult{Hits: []domain.Hit{}}, nil
	}

	db, err := e.reader(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source, err)
	}
	if db == nil {
		return &domain.BranchResult{Hits: []domain.Hit{}}, nil
	}

	result, err := searchSnapshot(ctx, db, source, q, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.dropReader(source)
		return nil, fmt.Errorf("%w: source %s: %v", domain.ErrIndexCorrupt, source, err)
	}
	return result, nil
}

// searchSnapshot evaluates the query inside one read transaction so every
// statement sees the same committed state, even while a writer commits.
func searchSnapshot(ctx context.Context, db *sql.DB, source string, q analysis.Query, limit int) (*domain.BranchResult, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	return searchShard(ctx, tx, source, q, limit)
}

func searchShard(ctx context.Context, tx *sql.Tx, source string, q analysis.Query, limit int) (*domain.BranchResult, error) {
	var docCount int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&docCount); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if docCount == 0 {
		return &domain.BranchResult{Hits: []domain.Hit{}}, nil
	}

	phraseTerms := make(map[string]struct{})
	for _, ph := range q.Phrases {
		for _, t := range ph.Tokens {
			phraseTerms[t.Term] = struct{}{}
		}
	}

	candidates := make(map[int64]*candidate)
	for _, term := range q.Terms {
		_, withPositions := phraseTerms[term]
		if err := scoreTerm(ctx, tx, term, docCount, withPositions, candidates); err != nil {
			return nil, err
		}
	}

	for _, term := range q.Excluded {
		if err := excludeTerm(ctx, tx, term, candidates); err != nil {
			return nil, err
		}
	}

	for key, c := range candidates {
		for _, ph := range q.Phrases {
			if !matchPhrase(c.positions, ph) {
				delete(candidates, key)
				break
			}
		}
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		c.score *= float64(c.matched) / float64(len(q.Terms))
		ranked = append(ranked, c)
	}

	hits, err := topHits(ctx, tx, source, ranked, limit)
	if err != nil {
		return nil, err
	}
	return &domain.BranchResult{Total: len(ranked), Hits: hits}, nil
}

func scoreTerm(ctx context.Context, tx *sql.Tx, term string, docCount int, withPositions bool, candidates map[int64]*candidate) error {
	columns := "doc_key, title_tf, body_tf"
	if withPositions {
		columns += ", positions"
	}
	rows, err := tx.QueryContext(ctx, "SELECT "+columns+" FROM postings WHERE term = ?", term)
	if err != nil {
		return fmt.Errorf("reading postings for %q: %w", term, err)
	}
	defer rows.Close()

	type entry struct {
		key       int64
		tfw       int
		positions []int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		var titleTF, bodyTF int
		var blob []byte
		dest := []any{&e.key, &titleTF, &bodyTF}
		if withPositions {
			dest = append(dest, &blob)
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scanning postings for %q: %w", term, err)
		}
		if withPositions {
			if e.positions, err = decodePositions(blob); err != nil {
				return fmt.Errorf("postings for %q: %w", term, err)
			}
		}
		e.tfw = max(2*titleTF+bodyTF, 1)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating postings for %q: %w", term, err)
	}
	if len(entries) == 0 {
		return nil
	}

	idf := math.Log(1 + float64(docCount)/float64(len(entries)))
	for _, e := range entries {
		c, ok := candidates[e.key]
		if !ok {
			c = &candidate{key: e.key}
			candidates[e.key] = c
		}
		c.score += (1 + math.Log(float64(e.tfw))) * idf
		c.matched++
		if withPositions {
			if c.positions == nil {
				c.positions = make(map[string][]int)
			}
			c.positions[term] = e.positions
		}
	}
	return nil
}

func excludeTerm(ctx context.Context, tx *sql.Tx, term string, candidates map[int64]*candidate) error {
	rows, err := tx.QueryContext(ctx, "SELECT doc_key FROM postings WHERE term = ?", term)
	if err != nil {
		return fmt.Errorf("reading postings for %q: %w", term, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scanning postings for %q: %w", term, err)
		}
		delete(candidates, key)
	}
	return rows.Err()
}

// matchPhrase reports whether the phrase occurs at consecutive positions.
func matchPhrase(positions map[string][]int, ph analysis.Phrase) bool {
	first := positions[ph.Tokens[0].Term]
	for _, start := range first {
		matched := true
		for _, t := range ph.Tokens[1:] {
			if _, ok := slices.BinarySearch(positions[t.Term], start+t.Position); !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// topHits selects the limit best candidates, breaking score ties by doc ID.
// Doc IDs are only loaded for candidates that can still make the cut.
func topHits(ctx context.Context, tx *sql.Tx, source string, ranked []*candidate, limit int) ([]domain.Hit, error) {
	if limit <= 0 || len(ranked) == 0 {
		return []domain.Hit{}, nil
	}

	slices.SortFunc(ranked, func(a, b *candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	end := min(limit, len(ranked))
	if end < len(ranked) {
		threshold := ranked[end-1].score
		for end < len(ranked) && ranked[end].score == threshold {
			end++
		}
	}
	ranked = ranked[:end]

	if len(ranked) > limit {
		ids, err := loadDocIDs(ctx, tx, ranked)
		if err != nil {
			return nil, err
		}
		for _, c := range ranked {
			c.docID = ids[c.key]
		}
		slices.SortFunc(ranked, func(a, b *candidate) int {
			if c := cmp.Compare(b.score, a.score); c != 0 {
				return c
			}
			return strings.Compare(a.docID, b.docID)
		})
		ranked = ranked[:limit]
	}

	return loadHits(ctx, tx, source, ranked)
}

func loadDocIDs(ctx context.Context, tx *sql.Tx, cands []*candidate) (map[int64]string, error) {
	ids := make(map[int64]string, len(cands))
	for start := 0; start < len(cands); start += maxParams {
		chunk := cands[start:min(start+maxParams, len(cands))]
		rows, err := tx.QueryContext(ctx,
			"SELECT doc_key, doc_id FROM documents WHERE doc_key IN ("+placeholders(len(chunk))+")",
			keyArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("loading doc ids: %w", err)
		}
		for rows.Next() {
			var key int64
			var docID string
			if err := rows.Scan(&key, &docID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning doc ids: %w", err)
			}
			ids[key] = docID
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating doc ids: %w", err)
		}
	}
	return ids, nil
}

func loadHits(ctx context.Context, tx *sql.Tx, source string, cands []*candidate) ([]domain.Hit, error) {
	byKey := make(map[int64]domain.Hit, len(cands))
	for start := 0; start < len(cands); start += maxParams {
		chunk := cands[start:min(start+maxParams, len(cands))]
		rows, err := tx.QueryContext(ctx, `
			SELECT doc_key, doc_id, title, preview, location, url
			FROM documents WHERE doc_key IN (`+placeholders(len(chunk))+`)`,
			keyArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("loading documents: %w", err)
		}
		for rows.Next() {
			var key int64
			h := domain.Hit{Source: source}
			if err := rows.Scan(&key, &h.DocID, &h.Title, &h.Preview, &h.Location, &h.URL); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning documents: %w", err)
			}
			byKey[key] = h
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating documents: %w", err)
		}
	}

	hits := make([]domain.Hit, 0, len(cands))
	for _, c := range cands {
		h, ok := byKey[c.key]
		if !ok {
			continue
		}
		h.Score = c.score
		hits = append(hits, h)
	}
	// Equal scores are ordered by doc ID, matching the merge order.
	domain.SortHits(hits)
	return hits, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func keyArgs(cands []*candidate) []any {
	args := make([]any, len(cands))
	for i, c := range cands {
		args[i] = c.key
	}
	return args
}
