package driven

import "context"

// LLMService provides text generation for answer synthesis.
// This is an optional service - when nil, answers are always null.
//
// Implementations include:
//   - Ollama (local models)
//   - OpenAI-compatible servers (OpenAI, LM Studio, llama.cpp, vLLM)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// Prompt names understood by PromptStore.
const (
	// PromptAnswer is the answer synthesis template. It may reference
	// {question} and {snippets}.
	PromptAnswer = "answer"
)

// PromptStore loads prompt templates, falling back to built-in defaults.
type PromptStore interface {
	// Load returns the template for a prompt name.
	Load(name string) (string, error)
}
