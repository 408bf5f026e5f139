package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

func newTestServer(t *testing.T, ports Ports, opts Options) *Server {
	t.Helper()
	s, err := NewServer(ports, opts)
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestNewServer_RequiresSearch(t *testing.T) {
	s, err := NewServer(Ports{}, Options{})

	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrMissingSearchService)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

	rec := get(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestInfo(t *testing.T) {
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{Version: "1.2.3", Metrics: metrics.New()})

	rec := get(t, s, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	var body infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bunker-search", body.Name)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Contains(t, body.Endpoints, "/api/search")
	assert.Contains(t, body.Endpoints, "/metrics")
}

func TestSearch_Success(t *testing.T) {
	answer := "Rust checks borrows at compile time."
	search := &mockSearchService{response: &domain.SearchResponse{
		TotalHits: 2,
		Hits: []domain.Hit{
			{Score: 1, DocID: "jsonl:notes:1", Source: "notes", Title: "Borrow Checker", Preview: "ownership", Location: "notes.jsonl#1"},
			{Score: 0.5, DocID: "A/Rust", Source: "kiwix:wiki", Title: "Rust", URL: "http://kiwix/content/wiki/A/Rust"},
		},
		Answer: &answer,
	}}
	s := newTestServer(t, Ports{Search: search}, Options{})

	rec := get(t, s, "/api/search?q=borrow+checker&limit=5&offset=1&source=notes&answer=true")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SearchRequest{
		Query: "borrow checker", Source: "notes", Limit: 5, Offset: 1, WantAnswer: true,
	}, search.lastReq)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.EqualValues(t, 2, raw["total_hits"])
	assert.Equal(t, answer, raw["answer"])

	hits, ok := raw["hits"].([]any)
	require.True(t, ok)
	require.Len(t, hits, 2)
	first := hits[0].(map[string]any)
	assert.Equal(t, "jsonl:notes:1", first["doc_id"])
	assert.Equal(t, "notes.jsonl#1", first["location"])
	_, hasURL := first["url"]
	assert.False(t, hasURL, "url is omitted when empty")
	assert.Equal(t, "http://kiwix/content/wiki/A/Rust", hits[1].(map[string]any)["url"])
}

func TestSearch_EmptyResponseShape(t *testing.T) {
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

	rec := get(t, s, "/api/search?q=")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_hits":0,"hits":[],"answer":null}`, rec.Body.String())
}

func TestSearch_Validation(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		message string
	}{
		{"missing q", "/api/search", "missing query parameter q"},
		{"non-integer limit", "/api/search?q=x&limit=ten", "limit must be an integer"},
		{"negative limit", "/api/search?q=x&limit=-1", "limit must not be negative"},
		{"non-integer offset", "/api/search?q=x&offset=1.5", "offset must be an integer"},
		{"negative offset", "/api/search?q=x&offset=-3", "offset must not be negative"},
		{"non-boolean answer", "/api/search?q=x&answer=maybe", "answer must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearchService{}
			s := newTestServer(t, Ports{Search: search}, Options{})

			rec := get(t, s, tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec), tt.message)
			assert.Zero(t, search.calls)
		})
	}
}

func TestSearch_ServiceErrors(t *testing.T) {
	t.Run("invalid input maps to 400", func(t *testing.T) {
		search := &mockSearchService{err: fmt.Errorf("%w: bad filter", domain.ErrInvalidInput)}
		s := newTestServer(t, Ports{Search: search}, Options{})

		rec := get(t, s, "/api/search?q=x")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "bad filter")
	})

	t.Run("other errors map to 500", func(t *testing.T) {
		search := &mockSearchService{err: errors.New("disk on fire")}
		s := newTestServer(t, Ports{Search: search}, Options{})

		rec := get(t, s, "/api/search?q=x")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, http.StatusText(http.StatusInternalServerError), decodeError(t, rec))
	})
}

func TestSources(t *testing.T) {
	t.Run("lists names", func(t *testing.T) {
		source := &mockSourceService{names: []string{"docs", "kiwix", "kiwix:wiki"}}
		s := newTestServer(t, Ports{Search: &mockSearchService{}, Source: source}, Options{})

		rec := get(t, s, "/api/sources")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sources":["docs","kiwix","kiwix:wiki"]}`, rec.Body.String())
	})

	t.Run("no source service gives empty list", func(t *testing.T) {
		s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

		rec := get(t, s, "/api/sources")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sources":[]}`, rec.Body.String())
	})

	t.Run("failure is 500", func(t *testing.T) {
		source := &mockSourceService{err: errors.New("catalog down")}
		s := newTestServer(t, Ports{Search: &mockSearchService{}, Source: source}, Options{})

		rec := get(t, s, "/api/sources")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

	rec := get(t, s, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin is echoed", func(t *testing.T) {
		s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{
			AllowedOrigins: []string{"http://localhost:3000"},
		})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("disabled without origins", func(t *testing.T) {
		s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{Metrics: m})

	require.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/search").Code)

	rec := get(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
	assert.Contains(t, rec.Body.String(), `status="4xx"`)
}

func TestMetricsRoute_DisabledWithoutMetrics(t *testing.T) {
	s := newTestServer(t, Ports{Search: &mockSearchService{}}, Options{})

	assert.Equal(t, http.StatusNotFound, get(t, s, "/metrics").Code)
}
