package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// federationMargin separates the deadlines of the Kiwix branch. The client
// gets the Kiwix timeout plus one margin and returns the collections that
// finished by then; the branch itself is abandoned one margin later.
const federationMargin = time.Second

// FederationBranch labels the Kiwix branch in logs and metrics.
const FederationBranch = "kiwix"

// branch is one independently retrieved slice of a query.
type branch struct {
	name    string
	timeout time.Duration
	search  func(ctx context.Context) (*domain.BranchResult, error)
}

// SearchService is the query engine. It fans a query out to every selected
// local shard and to the Kiwix federation, then merges and paginates.
type SearchService struct {
	settings   *domain.Settings
	engine     driven.IndexEngine
	federation driven.FederationClient
	answers    *AnswerSynthesizer
	metrics    *metrics.Metrics
}

// NewSearchService creates a new search service.
// The federation, answers and metrics parameters are optional (can be nil).
func NewSearchService(
	settings *domain.Settings,
	engine driven.IndexEngine,
	federation driven.FederationClient,
	answers *AnswerSynthesizer,
	m *metrics.Metrics,
) *SearchService {
	return &SearchService{
		settings:   settings,
		engine:     engine,
		federation: federation,
		answers:    answers,
		metrics:    m,
	}
}

// Search runs a query. Failing or slow branches contribute no hits; the
// response is always well formed.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q, source: %q", req.Query, req.Source)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return domain.EmptyResponse(), nil
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}

	started := time.Now()
	defer func() { s.metrics.ObserveQuery(time.Since(started)) }()

	limit := s.settings.ClampLimit(req.Limit)
	wantAnswer := req.WantAnswer && s.answers.Enabled()

	depth := req.Offset + limit
	if wantAnswer {
		depth = max(depth, s.answers.MaxContextHits())
	}
	logger.Debug("Limit: %d, Offset: %d, depth: %d", limit, req.Offset, depth)

	branches := s.branches(domain.ParseSourceFilter(req.Source), query, depth, req.Offset)
	if len(branches) == 0 {
		logger.Debug("No branch matches source %q", req.Source)
		return domain.EmptyResponse(), nil
	}

	results := make([]*domain.BranchResult, len(branches))
	var wg sync.WaitGroup
	for i := range branches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.runBranch(ctx, branches[i])
		}(i)
	}
	wg.Wait()

	total := 0
	hits := []domain.Hit{}
	for _, r := range results {
		if r == nil {
			continue
		}
		total += r.Total
		hits = append(hits, r.Hits...)
	}
	domain.SortHits(hits)

	var answer *string
	if wantAnswer {
		top := hits[:min(len(hits), s.answers.MaxContextHits())]
		answer = s.answers.Synthesize(ctx, query, top)
	}

	page := domain.Paginate(hits, req.Offset, limit)
	logger.Info("Search %q: %d total, %d returned", query, total, len(page))

	return &domain.SearchResponse{
		TotalHits: total,
		Hits:      page,
		Answer:    answer,
	}, nil
}

// branches returns the branches selected by filter. Local branches come in
// configuration order, the federation last.
func (s *SearchService) branches(filter domain.SourceFilter, query string, depth, offset int) []branch {
	var out []branch

	for _, desc := range s.settings.Sources {
		if !filter.IncludesLocal(desc.Name) {
			continue
		}
		name := desc.Name
		out = append(out, branch{
			name:    name,
			timeout: s.settings.LocalTimeout,
			search: func(ctx context.Context) (*domain.BranchResult, error) {
				res, err := s.engine.Search(ctx, name, query, depth)
				if err != nil {
					return nil, err
				}
				domain.NormaliseScores(res.Hits)
				return res, nil
			},
		})
	}

	if s.federation != nil && s.settings.Kiwix != nil && filter.IncludesKiwix() {
		collection := ""
		if filter.Kind == domain.FilterKiwixCollection {
			collection = filter.Name
		}
		out = append(out, branch{
			name:    FederationBranch,
			timeout: s.settings.Kiwix.Timeout + 2*federationMargin,
			search: func(ctx context.Context) (*domain.BranchResult, error) {
				ctx, cancel := context.WithTimeout(ctx, s.settings.Kiwix.Timeout+federationMargin)
				defer cancel()
				return s.federation.Search(ctx, collection, query, depth-offset, offset)
			},
		})
	}
	return out
}

// runBranch runs b under its own deadline. Returns nil when the branch
// failed or ran out of time.
func (s *SearchService) runBranch(ctx context.Context, b branch) *domain.BranchResult {
	timeout := b.timeout
	if timeout <= 0 {
		timeout = domain.DefaultLocalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *domain.BranchResult
		err error
	}
	done := make(chan outcome, 1)
	started := time.Now()
	go func() {
		res, err := b.search(ctx)
		done <- outcome{res, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}
	s.metrics.ObserveBranch(b.name, time.Since(started))

	switch {
	case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
		s.metrics.BranchFailed(b.name, metrics.OutcomeTimeout)
		logger.Warn("source %s timed out after %s", b.name, timeout)
		return nil
	case out.err != nil:
		s.metrics.BranchFailed(b.name, metrics.OutcomeError)
		logger.Error("source %s failed: %v", b.name, out.err)
		return nil
	case out.res == nil:
		return nil
	}
	logger.Debug("Source %s: %d total, %d fetched in %s", b.name, out.res.Total, len(out.res.Hits), time.Since(started))
	return out.res
}
