package kiwix

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/terms/" xmlns:opds="https://specs.opds.io/opds-1.2">
  <title>All zims</title>
  <entry>
    <id>urn:uuid:1</id>
    <title>Demo   Collection</title>
    <name>demo</name>
    <language>eng</language>
    <category>wikipedia</category>
    <link rel="http://opds-spec.org/acquisition/open-access" type="application/x-zim" href="https://download.example.org/demo.zim"/>
    <link type="text/html" href="/content/demo_collection"/>
  </entry>
  <entry>
    <id>urn:uuid:2</id>
    <title>Rust Book</title>
    <name>rust_book</name>
    <language>eng</language>
    <category>other</category>
    <link type="text/html" href="/content/rust_book/"/>
  </entry>
  <entry>
    <id>urn:uuid:3</id>
    <title></title>
    <name>nameonly</name>
    <category>wikipedia</category>
  </entry>
  <entry>
    <id>urn:uuid:4</id>
    <title>Nothing usable</title>
  </entry>
</feed>`

// resultsHTML renders a kiwix-serve search page with n hits out of total.
func resultsHTML(collection string, n, total int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="header">Results <b>1-`)
	fmt.Fprintf(&b, "%d</b> of <b>%s</b> for <b>borrow</b></div><div class=\"results\"><ul>", n, formatThousands(total))
	for i := range n {
		fmt.Fprintf(&b, `<li><a href="/content/%s/A/Page_%d">Page   %d</a><cite>Snippet <b>%d</b> about borrow</cite></li>`, collection, i, i, i)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

func formatThousands(n int) string {
	s := fmt.Sprint(n)
	if len(s) <= 3 {
		return s
	}
	return s[:len(s)-3] + "," + s[len(s)-3:]
}

type fakeServer struct {
	*httptest.Server
	catalogHits atomic.Int32
	searchHits  atomic.Int32
	failCatalog atomic.Bool
	lastQuery   atomic.Value
}

// newFakeServer serves the catalog above. demo_collection returns two hits,
// rust_book returns a full page out of 1,234, anything else fails with 500.
func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	f := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/v2/entries", func(w http.ResponseWriter, r *http.Request) {
		f.catalogHits.Add(1)
		if f.failCatalog.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(catalogXML))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchHits.Add(1)
		f.lastQuery.Store(r.URL.Query())
		switch r.URL.Query().Get("content") {
		case "demo_collection":
			_, _ = w.Write([]byte(resultsHTML("demo_collection", 2, 2)))
		case "rust_book":
			n, _ := strconv.Atoi(r.URL.Query().Get("pageLength"))
			_, _ = w.Write([]byte(resultsHTML("rust_book", min(max(n, 1), 1234), 1234)))
		default:
			http.Error(w, "no such book", http.StatusInternalServerError)
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}
