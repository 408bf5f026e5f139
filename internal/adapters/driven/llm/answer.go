// Package llm holds the answer shaping shared by the LLM backends.
package llm

import (
	"regexp"
	"strings"
)

// Generation defaults for answers when the caller leaves an option unset.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.2
)

// SystemPrompt keeps the model on the supplied snippets. It is sent as the
// system message, so an edited answer template cannot drop it.
const SystemPrompt = "You answer from offline search results. Use only facts stated in the snippets. " +
	"Keep the answer to a few short paragraphs and cite the bracketed source and location of each snippet you use."

// Options are resolved generation parameters.
type Options struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Resolve applies the answer defaults. A non-positive cap means
// DefaultMaxTokens and requests above the cap are lowered to it. A
// non-positive temperature means DefaultTemperature.
func Resolve(maxTokens, capTokens int, temperature float64, stop []string) Options {
	if capTokens <= 0 {
		capTokens = DefaultMaxTokens
	}
	if maxTokens <= 0 || maxTokens > capTokens {
		maxTokens = capTokens
	}
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return Options{MaxTokens: maxTokens, Temperature: temperature, Stop: stop}
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Clean strips reasoning blocks some local models emit ahead of the answer,
// then surrounding whitespace. An unterminated block leaves nothing.
func Clean(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	if i := strings.Index(text, "<think>"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// TrimToSentence cuts a reply that hit the token cap back to its last
// complete sentence. Text with no sentence end is returned unchanged.
func TrimToSentence(text string) string {
	end := strings.LastIndexAny(text, ".!?")
	if end < 0 {
		return text
	}
	return strings.TrimSpace(text[:end+1])
}
