// Package ai provides factory functions for creating answer synthesis backends.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamallm "github.com/custodia-labs/bunker-search/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/bunker-search/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
)

// pingTimeout bounds the startup reachability check.
const pingTimeout = 2 * time.Second

// CreateLLMService creates the LLM backend selected by the answer settings.
// Returns nil when answer synthesis is disabled.
func CreateLLMService(settings *domain.AnswerSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AnswerProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AnswerProviderOpenAI:
		return createOpenAILLM(settings)

	default:
		return nil, fmt.Errorf("%w: unsupported answer provider %q", domain.ErrInvalidConfig, settings.Provider)
	}
}

// CreateAndValidateLLMService creates the LLM backend and checks it is reachable.
// An unreachable backend is still returned together with the error, so the
// caller can decide whether to keep it; answers fail soft at query time.
func CreateAndValidateLLMService(settings *domain.AnswerSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return svc, fmt.Errorf("%w: %s unreachable (%w)", domain.ErrLLMUnavailable, settings.Provider, err)
	}
	return svc, nil
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.AnswerSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:      settings.BaseURL,
		Model:        settings.Model,
		Timeout:      settings.Timeout,
		MaxTokens:    settings.MaxAnswerTokens,
		ContextChars: settings.MaxContextChars,
	})
}

// createOpenAILLM creates an OpenAI-compatible LLM service.
func createOpenAILLM(settings *domain.AnswerSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:    settings.APIKey,
		BaseURL:   settings.BaseURL,
		Model:     settings.Model,
		Timeout:   settings.Timeout,
		MaxTokens: settings.MaxAnswerTokens,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
