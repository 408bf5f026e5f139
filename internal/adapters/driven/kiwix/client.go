package kiwix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// Ensure Client implements the interface.
var _ driven.FederationClient = (*Client)(nil)

// snapshot is an immutable view of the catalog.
type snapshot struct {
	collections []domain.Collection
	fetchedAt   time.Time
}

// Client queries a Kiwix server.
type Client struct {
	http     *http.Client
	base     *url.URL
	settings domain.KiwixSettings
	limiter  *rate.Limiter
	pool     *ants.Pool
	metrics  *metrics.Metrics
	now      func() time.Time

	snap       atomic.Pointer[snapshot]
	refreshing atomic.Bool
	refreshMu  sync.Mutex
	closed     atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Per-request timeouts come from
// the settings and are applied through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMetrics records requests and catalog size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client. The catalog is not fetched until first use.
func NewClient(settings domain.KiwixSettings, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(settings.BaseURL)
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: kiwix base_url %q", domain.ErrInvalidConfig, settings.BaseURL)
	}

	if settings.MaxHitsPerCollection < 1 {
		settings.MaxHitsPerCollection = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = domain.DefaultKiwixTimeout
	}
	if settings.MaxConcurrency < 1 {
		settings.MaxConcurrency = 1
	}

	pool, err := ants.NewPool(settings.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("create kiwix worker pool: %w", err)
	}

	c := &Client{
		http:     &http.Client{},
		base:     base,
		settings: settings,
		pool:     pool,
		now:      time.Now,
	}
	if settings.RequestsPerSecond > 0 {
		burst := max(1, int(settings.RequestsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collections returns the current snapshot. The first call fetches the
// catalog; later calls return immediately and refresh an expired snapshot
// in the background.
func (c *Client) Collections(ctx context.Context) []domain.Collection {
	s := c.snap.Load()
	if s == nil {
		if err := c.Refresh(ctx); err != nil {
			logger.Warn("kiwix: %v", err)
		}
		s = c.snap.Load()
		if s == nil {
			return nil
		}
	} else if c.expired(s) && !c.closed.Load() && c.refreshing.CompareAndSwap(false, true) {
		go func() {
			defer c.refreshing.Store(false)
			ctx, cancel := context.WithTimeout(context.Background(), c.settings.Timeout)
			defer cancel()
			if err := c.Refresh(ctx); err != nil {
				logger.Warn("kiwix: background refresh: %v", err)
			}
		}()
	}
	return append([]domain.Collection(nil), s.collections...)
}

func (c *Client) expired(s *snapshot) bool {
	interval := c.settings.RefreshInterval
	return interval > 0 && c.now().Sub(s.fetchedAt) >= interval
}

// Refresh re-reads the catalog and swaps the snapshot. A failed fetch keeps
// the previous snapshot, or installs an empty one if there was none.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if !c.needsDiscovery() {
		c.store(selectCollections(nil, c.settings.Collections, nil))
		return nil
	}

	discovered, err := c.fetchCatalog(ctx)
	if err != nil {
		if c.snap.Load() == nil {
			c.store(nil)
		}
		return fmt.Errorf("%w: %w", domain.ErrFederationUnavailable, err)
	}

	c.store(selectCollections(discovered, c.settings.Collections, c.settings.Categories))
	return nil
}

// needsDiscovery is false only for a static allow-list without category
// filters, which is served without contacting the server.
func (c *Client) needsDiscovery() bool {
	return c.settings.AutoDiscover || len(c.settings.Categories) > 0 || len(c.settings.Collections) == 0
}

func (c *Client) store(collections []domain.Collection) {
	if collections == nil {
		collections = []domain.Collection{}
	}
	c.snap.Store(&snapshot{collections: collections, fetchedAt: c.now()})
	c.metrics.SetKiwixCollections(len(collections))
}

func (c *Client) fetchCatalog(ctx context.Context) ([]domain.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	body, err := c.get(ctx, "catalog", c.endpoint("catalog/v2/entries", url.Values{"count": {"-1"}}))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return parseCatalog(body)
}

// Search queries one collection, or all of them when collectionID is empty.
// Collections that fail are logged and contribute nothing. When ctx is done
// before every collection has answered, the collections that finished are
// returned and the rest are dropped.
func (c *Client) Search(ctx context.Context, collectionID, query string, limit, offset int) (*domain.BranchResult, error) {
	empty := &domain.BranchResult{Hits: []domain.Hit{}}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return empty, nil
	}
	if c.closed.Load() {
		return nil, domain.ErrAdapterClosed
	}

	selected := c.Collections(ctx)
	if collectionID != "" {
		selected = filterByID(selected, collectionID)
	}
	if len(selected) == 0 {
		return empty, nil
	}

	pageLength := min(max(offset+limit, c.settings.MaxHitsPerCollection), MaxPageLength)

	// Submit blocks while the pool is full, so queueing runs apart from
	// collection. The channel is buffered for every collection so late
	// workers never block after Search has returned.
	done := make(chan *domain.BranchResult, len(selected))
	go func() {
		for _, col := range selected {
			if ctx.Err() != nil {
				done <- nil
				continue
			}
			err := c.pool.Submit(func() {
				done <- c.searchCollection(ctx, col, query, pageLength)
			})
			if err != nil {
				logger.Warn("kiwix: collection %s: %v", col.ID, err)
				done <- nil
			}
		}
	}()

	merged := &domain.BranchResult{Hits: []domain.Hit{}}
	for pending := len(selected); pending > 0; pending-- {
		select {
		case r := <-done:
			if r != nil {
				merged.Total += r.Total
				merged.Hits = append(merged.Hits, r.Hits...)
			}
		case <-ctx.Done():
			logger.Warn("kiwix: %d of %d collections unfinished: %v", pending, len(selected), ctx.Err())
			domain.SortHits(merged.Hits)
			return merged, nil
		}
	}
	domain.SortHits(merged.Hits)
	return merged, nil
}

func filterByID(collections []domain.Collection, id string) []domain.Collection {
	for _, c := range collections {
		if c.ID == id {
			return []domain.Collection{c}
		}
	}
	return nil
}

// searchCollection returns nil when the collection could not be queried.
func (c *Client) searchCollection(ctx context.Context, col domain.Collection, query string, pageLength int) *domain.BranchResult {
	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	u := c.endpoint("search", url.Values{
		"content":    {col.ID},
		"pattern":    {query},
		"start":      {"0"},
		"pageLength": {strconv.Itoa(pageLength)},
	})
	body, err := c.get(ctx, "search", u)
	if err != nil {
		logger.Warn("kiwix: collection %s: %v", col.ID, err)
		return nil
	}
	defer body.Close()

	result, err := parseResults(body, c.base, col, pageLength)
	if err != nil {
		logger.Warn("kiwix: collection %s: parse results: %v", col.ID, err)
		return nil
	}
	return result
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// get issues a paced GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, endpoint, u string) (io.ReadCloser, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.KiwixRequest(endpoint, outcome(err))
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.KiwixRequest(endpoint, outcome(err))
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.metrics.KiwixRequest(endpoint, metrics.OutcomeError)
		return nil, fmt.Errorf("kiwix %s returned status %d", endpoint, resp.StatusCode)
	}

	c.metrics.KiwixRequest(endpoint, metrics.OutcomeOK)
	return resp.Body, nil
}

func outcome(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeError
}

// Close releases the worker pool. Searches after Close fail.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.pool.Release()
	return nil
}
