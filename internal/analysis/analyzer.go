package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// Token length bounds, in runes.
const (
	MinTokenLength = 2
	MaxTokenLength = 50
)

// Token is an index term and its position in the raw token stream.
// Positions count every word, stopwords included, so phrase offsets survive
// stopword removal.
type Token struct {
	Term     string
	Position int
}

// Analyzer lowercases, splits on anything that is not a letter or digit,
// drops short, long and stop words, then applies English snowball stemming.
type Analyzer struct {
	stopWords map[string]struct{}
}

// New creates an analyzer with the default English stopword list.
func New() *Analyzer {
	return &Analyzer{stopWords: defaultStopWords()}
}

// Tokens analyzes text into positioned terms.
func (a *Analyzer) Tokens(text string) []Token {
	words := split(strings.ToLower(text))
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		if term, ok := a.term(word); ok {
			tokens = append(tokens, Token{Term: term, Position: pos})
		}
	}
	return tokens
}

// Terms analyzes text into terms, discarding positions.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

// IsStopWord reports whether a lowercased word is dropped by the analyzer.
func (a *Analyzer) IsStopWord(word string) bool {
	_, ok := a.stopWords[word]
	return ok
}

func (a *Analyzer) term(word string) (string, bool) {
	n := utf8.RuneCountInString(word)
	if n < MinTokenLength || n > MaxTokenLength {
		return "", false
	}
	if a.IsStopWord(word) {
		return "", false
	}
	return stem(word), true
}

func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

func split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
