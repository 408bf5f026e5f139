package kiwix

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// feed is the subset of an OPDS Atom feed that describes collections.
// Field tags carry no namespace so Atom and Dublin Core elements both match.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title    string `xml:"title"`
	Name     string `xml:"name"`
	Language string `xml:"language"`
	Category string `xml:"category"`
	Links    []link `xml:"link"`
}

type link struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

var contentIDPattern = regexp.MustCompile(`/content/([^/?#]+)`)

// parseCatalog reads an OPDS feed into collections sorted by ID.
// Entries without a usable ID are dropped; duplicate IDs keep the first entry.
func parseCatalog(r io.Reader) ([]domain.Collection, error) {
	var f feed
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Entries))
	collections := make([]domain.Collection, 0, len(f.Entries))
	for _, e := range f.Entries {
		contentPath := htmlLink(e.Links)
		id := contentID(contentPath)
		if id == "" {
			id = strings.TrimSpace(e.Name)
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		title := domain.CollapseWhitespace(e.Title)
		if title == "" {
			title = id
		}
		collections = append(collections, domain.Collection{
			ID:          id,
			Title:       title,
			Name:        strings.TrimSpace(e.Name),
			Language:    strings.TrimSpace(e.Language),
			Category:    strings.TrimSpace(e.Category),
			ContentPath: contentPath,
		})
	}

	sortCollections(collections)
	return collections, nil
}

// htmlLink returns the href of the first text/html link.
func htmlLink(links []link) string {
	for _, l := range links {
		if strings.HasPrefix(l.Type, "text/html") && l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// contentID extracts <id> from a /content/<id> path.
func contentID(href string) string {
	m := contentIDPattern.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// selectCollections applies the configured allow-list and category filter.
// Allow-listed IDs missing from the catalog are kept with their ID as title.
func selectCollections(discovered []domain.Collection, allow, categories []string) []domain.Collection {
	var out []domain.Collection
	if len(allow) == 0 {
		out = slices.Clone(discovered)
	} else {
		byID := make(map[string]domain.Collection, len(discovered))
		for _, c := range discovered {
			byID[c.ID] = c
		}
		seen := make(map[string]struct{}, len(allow))
		for _, id := range allow {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if c, ok := byID[id]; ok {
				out = append(out, c)
				continue
			}
			out = append(out, domain.Collection{ID: id, Title: id})
		}
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			wanted[c] = struct{}{}
		}
	}
	if len(wanted) > 0 {
		out = slices.DeleteFunc(out, func(c domain.Collection) bool {
			_, ok := wanted[strings.ToLower(c.Category)]
			return !ok
		})
	}

	sortCollections(out)
	return out
}

func sortCollections(collections []domain.Collection) {
	slices.SortFunc(collections, func(a, b domain.Collection) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
