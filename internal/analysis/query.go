package analysis

import "strings"

// Query is an analyzed query.
//
// Syntax: bare words are optional terms ranked by coverage, "quoted text"
// must occur as a phrase, and -word excludes documents containing word.
type Query struct {
	// Terms are the distinct positive terms in first-seen order,
	// phrase terms included.
	Terms []string

	// Phrases must each match at adjacent positions.
	Phrases []Phrase

	// Excluded terms must not occur in a hit.
	Excluded []string
}

// Phrase is a sequence of terms with positions relative to its first term.
type Phrase struct {
	Tokens []Token
}

// IsEmpty reports whether the query has no positive terms.
func (q Query) IsEmpty() bool {
	return len(q.Terms) == 0
}

// ParseQuery analyzes raw query text.
func (a *Analyzer) ParseQuery(text string) Query {
	var q Query
	seen := make(map[string]struct{})
	excluded := make(map[string]struct{})

	addTerm := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		q.Terms = append(q.Terms, term)
	}

	for _, part := range splitQuoted(text) {
		if part.quoted {
			tokens := a.Tokens(part.text)
			for _, t := range tokens {
				addTerm(t.Term)
			}
			if len(tokens) > 1 {
				base := tokens[0].Position
				rel := make([]Token, len(tokens))
				for i, t := range tokens {
					rel[i] = Token{Term: t.Term, Position: t.Position - base}
				}
				q.Phrases = append(q.Phrases, Phrase{Tokens: rel})
			}
			continue
		}

		for _, word := range strings.Fields(part.text) {
			if len(word) > 1 && word[0] == '-' {
				for _, term := range a.Terms(word[1:]) {
					if _, ok := excluded[term]; !ok {
						excluded[term] = struct{}{}
						q.Excluded = append(q.Excluded, term)
					}
				}
				continue
			}
			for _, term := range a.Terms(word) {
				addTerm(term)
			}
		}
	}

	// A term both required and excluded cannot match; exclusion wins.
	if len(excluded) > 0 {
		kept := q.Terms[:0]
		for _, term := range q.Terms {
			if _, ok := excluded[term]; !ok {
				kept = append(kept, term)
			}
		}
		q.Terms = kept
	}
	return q
}

type queryPart struct {
	text   string
	quoted bool
}

// splitQuoted splits text on double quotes. An unterminated quote runs to the end.
func splitQuoted(text string) []queryPart {
	var parts []queryPart
	quoted := false
	for {
		i := strings.IndexByte(text, '"')
		if i < 0 {
			parts = append(parts, queryPart{text: text, quoted: quoted})
			return parts
		}
		if i > 0 {
			parts = append(parts, queryPart{text: text[:i], quoted: quoted})
		}
		text = text[i+1:]
		quoted = !quoted
	}
}
