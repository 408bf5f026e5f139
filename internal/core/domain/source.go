package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceKind identifies how a source is read. The set is closed: every
// switch over SourceKind handles all four kinds.
type SourceKind string

// Supported source kinds.
const (
	// SourceKindFilesystem walks a directory tree.
	SourceKindFilesystem SourceKind = "filesystem"

	// SourceKindJSONL reads one JSON object per line.
	SourceKindJSONL SourceKind = "jsonl"

	// SourceKindStackExchange streams a Stack Exchange Posts.xml dump.
	SourceKindStackExchange SourceKind = "stack_exchange_xml"

	// SourceKindKiwix is a remote collection on a Kiwix server.
	// Kiwix sources are discovered, never configured as local sources.
	SourceKindKiwix SourceKind = "kiwix"
)

// KiwixPrefix prefixes the source name of every federated hit.
const KiwixPrefix = "kiwix:"

// IsLocal reports whether the kind is indexed locally.
func (k SourceKind) IsLocal() bool {
	switch k {
	case SourceKindFilesystem, SourceKindJSONL, SourceKindStackExchange:
		return true
	case SourceKindKiwix:
		return false
	default:
		return false
	}
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// DefaultExtensions are the file extensions indexed by filesystem sources
// when none are configured.
var DefaultExtensions = []string{
	"txt", "md", "markdown", "rst", "org", "tex",
	"html", "htm", "xhtml", "xml",
	"json", "jsonl", "csv", "tsv", "log",
}

// Default JSON-lines field names.
const (
	DefaultIDField    = "id"
	DefaultTitleField = "title"
	DefaultBodyField  = "body"
	DefaultURLField   = "url"
)

// SourceDescriptor is a configured local source.
type SourceDescriptor struct {
	// Name identifies the source in queries and results.
	Name string

	// Kind selects the ingestion adapter.
	Kind SourceKind

	// Path is the root directory (filesystem) or input file (jsonl, stack exchange).
	Path string

	// Extensions limits filesystem sources to these extensions (without dot).
	Extensions []string

	// FollowSymlinks lets the filesystem walker descend into symlinked entries.
	FollowSymlinks bool

	// IDField, TitleField, BodyField and URLField map JSON-lines fields.
	IDField    string
	TitleField string
	BodyField  string
	URLField   string

	// SiteURL is the Stack Exchange site root used to build post links.
	SiteURL string
}

var sourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Validate checks the descriptor is usable and fills kind-specific defaults.
func (d *SourceDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: source name is required", ErrInvalidConfig)
	}
	if strings.EqualFold(d.Name, string(SourceKindKiwix)) || strings.HasPrefix(strings.ToLower(d.Name), KiwixPrefix) {
		return fmt.Errorf("%w: source name %q is reserved", ErrInvalidConfig, d.Name)
	}
	if !sourceNamePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: source name %q may only contain letters, digits, '.', '_' and '-'", ErrInvalidConfig, d.Name)
	}
	if d.Path == "" {
		return fmt.Errorf("%w: source %q has no path", ErrInvalidConfig, d.Name)
	}

	switch d.Kind {
	case SourceKindFilesystem:
		if len(d.Extensions) == 0 {
			d.Extensions = append([]string(nil), DefaultExtensions...)
		}
		for i, ext := range d.Extensions {
			d.Extensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
		}
	case SourceKindJSONL:
		d.IDField = defaultString(d.IDField, DefaultIDField)
		d.TitleField = defaultString(d.TitleField, DefaultTitleField)
		d.BodyField = defaultString(d.BodyField, DefaultBodyField)
		d.URLField = defaultString(d.URLField, DefaultURLField)
	case SourceKindStackExchange:
		d.SiteURL = strings.TrimRight(d.SiteURL, "/")
	case SourceKindKiwix:
		return fmt.Errorf("%w: kiwix collections are configured under [kiwix]", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSourceKind, d.Kind)
	}
	return nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Collection is one archive exposed by a Kiwix server.
type Collection struct {
	// ID is the content identifier used in search requests and source names.
	ID string

	// Title is the human-readable title from the catalog.
	Title string

	// Name is the catalog's book name, when present.
	Name string

	// Language is the catalog language code.
	Language string

	// Category is the catalog category (e.g., "wikipedia").
	Category string

	// ContentPath is the server path of the collection's HTML content
	// (e.g., "/content/wikipedia_en_all"). Empty for static collections.
	ContentPath string
}

// SourceName returns the source name used on hits from this collection.
func (c Collection) SourceName() string {
	return KiwixPrefix + c.ID
}

// FilterKind classifies a parsed source filter.
type FilterKind int

const (
	// FilterAll searches every local source and every Kiwix collection.
	FilterAll FilterKind = iota

	// FilterLocal searches a single named local source.
	FilterLocal

	// FilterKiwixAll searches every discovered Kiwix collection.
	FilterKiwixAll

	// FilterKiwixCollection searches one Kiwix collection.
	FilterKiwixCollection
)

// SourceFilter is a parsed "source" request parameter.
type SourceFilter struct {
	Kind FilterKind

	// Name is the local source name or the Kiwix collection ID.
	Name string
}

// ParseSourceFilter interprets the source parameter of a search request.
// Matching of the kiwix keyword and prefix is case-insensitive; names are not.
func ParseSourceFilter(raw string) SourceFilter {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return SourceFilter{Kind: FilterAll}
	case lower == string(SourceKindKiwix):
		return SourceFilter{Kind: FilterKiwixAll}
	case strings.HasPrefix(lower, KiwixPrefix):
		return SourceFilter{Kind: FilterKiwixCollection, Name: s[len(KiwixPrefix):]}
	default:
		return SourceFilter{Kind: FilterLocal, Name: s}
	}
}

// IncludesLocal reports whether the named local source is selected.
func (f SourceFilter) IncludesLocal(name string) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterLocal:
		return f.Name == name
	default:
		return false
	}
}

// IncludesKiwix reports whether any Kiwix collection is selected. A
// collection filter with an empty ID selects nothing.
func (f SourceFilter) IncludesKiwix() bool {
	switch f.Kind {
	case FilterAll, FilterKiwixAll:
		return true
	case FilterKiwixCollection:
		return f.Name != ""
	default:
		return false
	}
}
