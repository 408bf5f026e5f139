package kiwix

import (
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

// MaxPageLength is the largest page requested from one collection.
const MaxPageLength = 75

var totalPattern = regexp.MustCompile(`(?i)\bof\s+([0-9][0-9,]*)`)

// parseResults reads a kiwix-serve search page. Hits are scored
// pageLength - rank, then normalised within the collection.
func parseResults(r io.Reader, base *url.URL, c domain.Collection, pageLength int) (*domain.BranchResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var hits []domain.Hit
	doc.Find(".results li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}

		title := domain.CollapseWhitespace(a.Text())
		if title == "" {
			title = "Untitled"
		}
		preview := domain.MakePreview(domain.CollapseWhitespace(li.Find("cite").First().Text()))
		if preview == "" {
			preview = "From " + c.Title
		}

		hits = append(hits, domain.Hit{
			Score:    float64(pageLength - len(hits)),
			DocID:    domain.KiwixPrefix + c.ID + ":" + href,
			Source:   c.SourceName(),
			Title:    title,
			Preview:  preview,
			Location: href,
			URL:      resolve(base, href),
		})
	})
	domain.NormaliseScores(hits)

	total, ok := parseTotal(doc.Find(".header").First().Text())
	if !ok {
		total = len(hits)
	}
	total = min(total, MaxPageLength)
	if len(hits) < pageLength {
		// A short page is the last one; entries without a link are not reachable.
		total = len(hits)
	}
	total = max(total, len(hits))

	if hits == nil {
		hits = []domain.Hit{}
	}
	return &domain.BranchResult{Total: total, Hits: hits}, nil
}

// parseTotal reads N from a header like "Results 1-25 of 1,234 for ...".
func parseTotal(header string) (int, bool) {
	m := totalPattern.FindStringSubmatch(domain.CollapseWhitespace(header))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolve appends a content path to the base URL, keeping any path prefix
// the server is mounted under.
func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	u := base.JoinPath(strings.TrimPrefix(ref.EscapedPath(), "/"))
	u.RawQuery = ref.RawQuery
	u.Fragment = ref.Fragment
	return u.String()
}
