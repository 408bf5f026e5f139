package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
)

// --- Mock implementations for service testing ---

// mockEngine implements driven.IndexEngine with canned branch results.
type mockEngine struct {
	mu      sync.Mutex
	results map[string]*domain.BranchResult
	errs    map[string]error
	delays  map[string]time.Duration
	calls   []string
	limits  []int
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		results: make(map[string]*domain.BranchResult),
		errs:    make(map[string]error),
		delays:  make(map[string]time.Duration),
	}
}

func (m *mockEngine) OpenWriter(_ context.Context, _ string) (driven.IndexWriter, error) {
	return nil, domain.ErrNotFound
}

func (m *mockEngine) Search(ctx context.Context, source, _ string, limit int) (*domain.BranchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, source)
	m.limits = append(m.limits, limit)
	res, err, delay := m.results[source], m.errs[source], m.delays[source]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &domain.BranchResult{Hits: []domain.Hit{}}, nil
	}
	// Hand out a copy; the query engine normalises scores in place.
	hits := append([]domain.Hit(nil), res.Hits...)
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return &domain.BranchResult{Total: res.Total, Hits: hits}, nil
}

func (m *mockEngine) Close() error { return nil }

func (m *mockEngine) searched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// mockFederation implements driven.FederationClient.
type mockFederation struct {
	mu          sync.Mutex
	collections []domain.Collection
	result      *domain.BranchResult
	err         error
	refreshErr  error
	delay       time.Duration
	// partial is returned instead of an error when ctx ends during delay.
	partial *domain.BranchResult

	calls      int
	refreshes  int
	lastID     string
	lastLimit  int
	lastOffset int
}

func (m *mockFederation) Collections(_ context.Context) []domain.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Collection(nil), m.collections...)
}

func (m *mockFederation) Refresh(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return m.refreshErr
}

func (m *mockFederation) Search(ctx context.Context, collectionID, _ string, limit, offset int) (*domain.BranchResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastID, m.lastLimit, m.lastOffset = collectionID, limit, offset
	res, err, delay, partial := m.result, m.err, m.delay, m.partial
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			if partial != nil {
				return partial, nil
			}
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &domain.BranchResult{Hits: []domain.Hit{}}, nil
	}
	return &domain.BranchResult{Total: res.Total, Hits: append([]domain.Hit(nil), res.Hits...)}, nil
}

func (m *mockFederation) Close() error { return nil }

func (m *mockFederation) searchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLM implements driven.LLMService.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	delay    time.Duration
	prompts  []string
	opts     []driven.GenerateOptions
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.response, m.err
}

func (m *mockLLM) ModelName() string { return "mock-model" }

func (m *mockLLM) Ping(_ context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	template string
	err      error
}

func (m *mockPromptStore) Load(_ string) (string, error) {
	return m.template, m.err
}

// mockIndexService implements driving.IndexService.
type mockIndexService struct {
	mu       sync.Mutex
	allCalls int
	stats    []domain.IndexStats
	err      error
}

func (m *mockIndexService) Index(_ context.Context, source string, _ driving.IndexOptions) (*domain.IndexStats, error) {
	return &domain.IndexStats{Source: source}, nil
}

func (m *mockIndexService) IndexAll(_ context.Context, _ driving.IndexOptions) ([]domain.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allCalls++
	return m.stats, m.err
}

func (m *mockIndexService) Watch(ctx context.Context, _ func(domain.IndexStats)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockIndexService) indexAllCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allCalls
}

// Ensure mocks implement interfaces
var (
	_ driven.IndexEngine      = (*mockEngine)(nil)
	_ driven.FederationClient = (*mockFederation)(nil)
	_ driven.LLMService       = (*mockLLM)(nil)
	_ driven.PromptStore      = (*mockPromptStore)(nil)
	_ driving.IndexService    = (*mockIndexService)(nil)
)

// hit builds a test hit.
func hit(source, docID string, score float64) domain.Hit {
	return domain.Hit{
		Score:    score,
		DocID:    docID,
		Source:   source,
		Title:    "Title " + docID,
		Preview:  "Preview " + docID,
		Location: docID,
	}
}

// testSettings returns settings with the named filesystem sources.
func testSettings(sources ...string) *domain.Settings {
	s := domain.DefaultSettings()
	for _, name := range sources {
		s.Sources = append(s.Sources, domain.SourceDescriptor{
			Name: name,
			Kind: domain.SourceKindFilesystem,
			Path: "/srv/" + name,
		})
	}
	return &s
}

func withKiwix(s *domain.Settings) *domain.Settings {
	k := domain.DefaultKiwixSettings("http://kiwix.test")
	k.Timeout = 200 * time.Millisecond
	s.Kiwix = &k
	return s
}
