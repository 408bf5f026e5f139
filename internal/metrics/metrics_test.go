package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveQuery(10 * time.Millisecond)
	m.ObserveQuery(20 * time.Millisecond)
	m.BranchFailed("kiwix", OutcomeTimeout)
	m.ObserveBranch("docs", 5*time.Millisecond)
	m.KiwixRequest("search", OutcomeOK)
	m.SetKiwixCollections(3)
	m.Answer(OutcomeError)
	m.IndexPass("docs", 5, 2, 1, 0, time.Second)
	m.HTTPRequest(http.MethodGet, "/api/search", http.StatusBadRequest, time.Millisecond)

	body := scrape(t, m)

	for _, line := range []string{
		"bunker_search_queries_total 2",
		`bunker_search_branch_failures_total{branch="kiwix",outcome="timeout"} 1`,
		`bunker_search_kiwix_requests_total{endpoint="search",outcome="ok"} 1`,
		"bunker_search_kiwix_collections 3",
		`bunker_search_answers_total{outcome="error"} 1`,
		`bunker_search_index_items_total{result="indexed",source="docs"} 5`,
		`bunker_search_index_items_total{result="unchanged",source="docs"} 2`,
		`bunker_search_http_requests_total{method="GET",route="/api/search",status="4xx"} 1`,
		`bunker_search_index_pass_duration_seconds_count{source="docs"} 1`,
		`bunker_search_branch_duration_seconds_count{branch="docs"} 1`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveQuery(time.Millisecond)

	body := scrape(t, m)

	assert.Contains(t, body, "bunker_search_queries_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveQuery(time.Millisecond)
		m.BranchFailed("docs", OutcomeError)
		m.ObserveBranch("docs", time.Millisecond)
		m.KiwixRequest("catalog", OutcomeError)
		m.SetKiwixCollections(1)
		m.Answer(OutcomeOK)
		m.IndexPass("docs", 1, 0, 0, 0, time.Second)
		m.HTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "3xx", statusClass(http.StatusFound))
	assert.Equal(t, "4xx", statusClass(http.StatusNotFound))
	assert.Equal(t, "5xx", statusClass(http.StatusBadGateway))
}
