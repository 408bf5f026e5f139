package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		maxTokens   int
		capTokens   int
		temperature float64
		want        Options
	}{
		{"defaults", 0, 0, 0, Options{MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}},
		{"cap applies when unset", 0, 128, 0.5, Options{MaxTokens: 128, Temperature: 0.5}},
		{"request below cap", 64, 128, 0.1, Options{MaxTokens: 64, Temperature: 0.1}},
		{"request above cap", 4096, 128, 0.1, Options{MaxTokens: 128, Temperature: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.maxTokens, tt.capTokens, tt.temperature, nil))
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Ownership moves values. \n", "Ownership moves values."},
		{"reasoning block", "<think>\nthe user asks...\n</think>\n\nOwnership moves values.", "Ownership moves values."},
		{"unterminated block", "Ownership. <think>still going", "Ownership."},
		{"only reasoning", "<think>hmm</think>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTrimToSentence(t *testing.T) {
	assert.Equal(t, "Borrowing is checked. It is static.", TrimToSentence("Borrowing is checked. It is static. The check runs at"))
	assert.Equal(t, "Is it safe?", TrimToSentence("Is it safe? Mostly bec"))
	assert.Equal(t, "no sentence end", TrimToSentence("no sentence end"))
}
