package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type hitResponse struct {
	Score    float64 `json:"score"`
	DocID    string  `json:"doc_id"`
	Source   string  `json:"source"`
	Title    string  `json:"title"`
	Preview  string  `json:"preview"`
	Location string  `json:"location"`
	URL      string  `json:"url,omitempty"`
}

type searchResponse struct {
	TotalHits int           `json:"total_hits"`
	Hits      []hitResponse `json:"hits"`
	Answer    *string       `json:"answer"`
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
}

type infoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

func (s *Server) handleInfo(c echo.Context) error {
	endpoints := []string{"/api/search", "/api/sources", "/healthz"}
	if s.metrics != nil {
		endpoints = append(endpoints, "/metrics")
	}
	return c.JSON(http.StatusOK, infoResponse{
		Name:      "bunker-search",
		Version:   s.version,
		Endpoints: endpoints,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleSearch(c echo.Context) error {
	req, err := parseSearchRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := s.ports.Search.Search(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return fmt.Errorf("search: %w", err)
	}

	out := searchResponse{
		TotalHits: resp.TotalHits,
		Hits:      make([]hitResponse, len(resp.Hits)),
		Answer:    resp.Answer,
	}
	for i, h := range resp.Hits {
		out.Hits[i] = hitResponse{
			Score:    h.Score,
			DocID:    h.DocID,
			Source:   h.Source,
			Title:    h.Title,
			Preview:  h.Preview,
			Location: h.Location,
			URL:      h.URL,
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSources(c echo.Context) error {
	out := sourcesResponse{Sources: []string{}}
	if s.ports.Source != nil {
		names, err := s.ports.Source.Names(c.Request().Context())
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
		if names != nil {
			out.Sources = names
		}
	}
	return c.JSON(http.StatusOK, out)
}

// parseSearchRequest validates the query string. A present but empty q is
// valid and yields an empty response.
func parseSearchRequest(c echo.Context) (domain.SearchRequest, error) {
	params := c.QueryParams()
	if _, ok := params["q"]; !ok {
		return domain.SearchRequest{}, errors.New("missing query parameter q")
	}

	req := domain.SearchRequest{
		Query:  params.Get("q"),
		Source: params.Get("source"),
	}

	var err error
	if req.Limit, err = nonNegativeInt(params.Get("limit"), "limit"); err != nil {
		return domain.SearchRequest{}, err
	}
	if req.Offset, err = nonNegativeInt(params.Get("offset"), "offset"); err != nil {
		return domain.SearchRequest{}, err
	}
	if raw := params.Get("answer"); raw != "" {
		if req.WantAnswer, err = strconv.ParseBool(raw); err != nil {
			return domain.SearchRequest{}, fmt.Errorf("answer must be a boolean, got %q", raw)
		}
	}
	return req, nil
}

func nonNegativeInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}
