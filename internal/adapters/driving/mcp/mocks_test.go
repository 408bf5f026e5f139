package mcp

import (
	"context"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
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
