package httpapi

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	calls    int
	lastReq  domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.calls++
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
	names []string
	err   error
}

func (m *mockSourceService) Names(_ context.Context) ([]string, error) {
	return m.names, m.err
}

func (m *mockSourceService) Local(_ context.Context) ([]domain.SourceDescriptor, error) {
	return nil, m.err
}

func (m *mockSourceService) Collections(_ context.Context) ([]domain.Collection, error) {
	return nil, m.err
}
