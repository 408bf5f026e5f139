package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	lastReq  domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return domain.EmptyResponse(), nil
	}
	return m.response, nil
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	names       []string
	local       []domain.SourceDescriptor
	collections []domain.Collection
	err         error
}

func (m *mockSourceService) Names(_ context.Context) ([]string, error) {
	return m.names, m.err
}

func (m *mockSourceService) Local(_ context.Context) ([]domain.SourceDescriptor, error) {
	return m.local, m.err
}

func (m *mockSourceService) Collections(_ context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	stats      []domain.IndexStats
	err        error
	watchErr   error
	lastSource string
	lastOpts   driving.IndexOptions
	watched    bool
}

func (m *mockIndexService) Index(_ context.Context, source string, opts driving.IndexOptions) (*domain.IndexStats, error) {
	m.lastSource = source
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if len(m.stats) == 0 {
		return &domain.IndexStats{Source: source}, nil
	}
	s := m.stats[0]
	return &s, nil
}

func (m *mockIndexService) IndexAll(_ context.Context, opts driving.IndexOptions) ([]domain.IndexStats, error) {
	m.lastOpts = opts
	return m.stats, m.err
}

func (m *mockIndexService) Watch(ctx context.Context, report func(domain.IndexStats)) error {
	m.watched = true
	if m.watchErr != nil {
		return m.watchErr
	}
	report(domain.IndexStats{Source: "docs", Scanned: 1, Indexed: 1})
	return context.Canceled
}

// mockScheduler is a mock implementation of driving.Scheduler.
type mockScheduler struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) wasStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	search *mockSearchService
	source *mockSourceService
	index  *mockIndexService
}

// setupTestServices replaces service wiring with mocks and returns a
// function restoring the previous state.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		search: &mockSearchService{response: &domain.SearchResponse{
			TotalHits: 1,
			Hits: []domain.Hit{{
				Score: 1, DocID: "jsonl:notes:1", Source: "notes",
				Title: "Borrow Checker", Preview: "Rust's borrow checker", Location: "notes.jsonl#1",
			}},
		}},
		source: &mockSourceService{},
		index:  &mockIndexService{},
	}

	oldLoad := loadServices
	loadServices = func(string, bool) error {
		s := domain.DefaultSettings()
		settings = &s
		searchService = ts.search
		sourceService = ts.source
		indexService = ts.index
		return nil
	}

	return ts, func() {
		loadServices = oldLoad
		settings = nil
		searchService = nil
		sourceService = nil
		indexService = nil
		federation = nil
		appMetrics = nil
		resetFlags()
	}
}

// withoutServices makes wiring succeed without configuring anything.
func withoutServices() func() {
	oldLoad := loadServices
	loadServices = func(string, bool) error { return nil }
	return func() { loadServices = oldLoad }
}

func resetFlags() {
	searchLimit, searchOffset, searchSource, searchAnswer, searchJSON = 0, 0, "", false, false
	indexRebuild, indexSource, indexWatch = false, "", false
	serveBind = ""
	configPath, verbose = DefaultConfigPath, false
	rootCmd.SetArgs(nil)
}

var errBoom = errors.New("boom")
