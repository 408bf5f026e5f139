package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for bunker-search resources.
	uriScheme = "bunker://"
)

// sourceInfo describes one searchable source.
type sourceInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Path     string `json:"path,omitempty"`
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
	Category string `json:"category,omitempty"`
}

// sourcesDocument is the body of the sources resource.
type sourcesDocument struct {
	Sources []string     `json:"sources"`
	Details []sourceInfo `json:"details"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Searchable sources: local sources and Kiwix collections",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{name}",
		Name:        "source",
		Description: "Details of one source, by the name used in the search source filter",
		MIMEType:    "application/json",
	}, s.handleSourceResource)
}

// handleSourcesResource lists every searchable source.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	doc := sourcesDocument{Sources: []string{}, Details: []sourceInfo{}}
	if s.ports.Source != nil {
		var err error
		if doc.Sources, err = s.ports.Source.Names(ctx); err != nil {
			return nil, fmt.Errorf("listing sources: %w", err)
		}
		if doc.Details, err = s.sourceDetails(ctx); err != nil {
			return nil, err
		}
	}
	return jsonResult(req.Params.URI, doc)
}

// handleSourceResource returns one source by name.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractSourceName(req.Params.URI)
	if name == "" || s.ports.Source == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	details, err := s.sourceDetails(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range details {
		if d.Name == name {
			return jsonResult(req.Params.URI, d)
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func (s *Server) sourceDetails(ctx context.Context) ([]sourceInfo, error) {
	local, err := s.ports.Source.Local(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing local sources: %w", err)
	}
	collections, err := s.ports.Source.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	infos := make([]sourceInfo, 0, len(local)+len(collections))
	for _, d := range local {
		infos = append(infos, sourceInfo{Name: d.Name, Type: d.Kind.String(), Path: d.Path})
	}
	for _, c := range collections {
		infos = append(infos, sourceInfo{
			Name:     c.SourceName(),
			Type:     domain.SourceKindKiwix.String(),
			Title:    c.Title,
			Language: c.Language,
			Category: c.Category,
		})
	}
	return infos, nil
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceName extracts the name from a URI like bunker://sources/{name}.
func extractSourceName(uri string) string {
	const prefix = uriScheme + "sources/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	name := strings.TrimPrefix(uri, prefix)
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
