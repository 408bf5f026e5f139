// Package ollama answers queries through a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/llm"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://127.0.0.1:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 20 * time.Second

	// DefaultKeepAlive keeps the model loaded between searches.
	DefaultKeepAlive = "10m"
)

// LLMConfig holds configuration for the Ollama answer backend.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434).
	BaseURL string

	// Model is the model to answer with (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 20s).
	Timeout time.Duration

	// MaxTokens caps num_predict for every answer (default: llm.DefaultMaxTokens).
	MaxTokens int

	// ContextChars sizes num_ctx so the snippet block and the answer fit.
	// Zero leaves the server's window alone.
	ContextChars int
}

// LLMService synthesizes answers with Ollama's /api/generate.
type LLMService struct {
	client    *http.Client
	baseURL   string
	model     string
	maxTokens int
	numCtx    int
}

type generateRequest struct {
	Model     string  `json:"model"`
	System    string  `json:"system"`
	Prompt    string  `json:"prompt"`
	Stream    bool    `json:"stream"`
	KeepAlive string  `json:"keep_alive"`
	Options   options `json:"options"`
}

type options struct {
	NumPredict  int      `json:"num_predict"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

// NewLLMService creates an Ollama answer backend.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		numCtx:    contextWindow(cfg.ContextChars, cfg.MaxTokens),
	}
}

// contextWindow estimates the tokens needed for the snippets, the prompt
// scaffolding and the answer, rounded up to a multiple of 1024.
func contextWindow(chars, answerTokens int) int {
	if chars <= 0 {
		return 0
	}
	need := chars/3 + answerTokens + 512
	return (need + 1023) / 1024 * 1024
}

// Generate returns the answer text for a rendered prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	o := llm.Resolve(opts.MaxTokens, s.maxTokens, opts.Temperature, opts.StopWords)
	reqBody := generateRequest{
		Model:     s.model,
		System:    llm.SystemPrompt,
		Prompt:    prompt,
		KeepAlive: DefaultKeepAlive,
		Options: options{
			NumPredict:  o.MaxTokens,
			NumCtx:      s.numCtx,
			Temperature: o.Temperature,
			Stop:        o.Stop,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	answer := llm.Clean(genResp.Response)
	if genResp.DoneReason == "length" {
		logger.Debug("ollama: answer hit num_predict=%d", o.MaxTokens)
		answer = llm.TrimToSentence(answer)
	}
	return answer, nil
}

// ModelName returns the model answers are generated with.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server is reachable through /api/tags without loading a model.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
