package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// Floors applied to the answer context budget.
const (
	minContextHits  = 1
	minContextChars = 500
)

// fallbackAnswerPrompt is used when the prompt store cannot serve a template.
const fallbackAnswerPrompt = `You are answering questions using only the provided offline search snippets.
If the snippets are insufficient, say what is missing.

Question:
{question}

Search snippets:
{snippets}`

// AnswerSynthesizer turns the top hits of a query into a short answer
// using an LLM. It never fails a query: every problem yields a nil answer.
type AnswerSynthesizer struct {
	llm      driven.LLMService
	prompts  driven.PromptStore
	settings domain.AnswerSettings
	metrics  *metrics.Metrics
}

// NewAnswerSynthesizer creates a synthesizer. With a nil llm the
// synthesizer is inert. The prompts and metrics parameters are optional
// (can be nil).
func NewAnswerSynthesizer(
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.AnswerSettings,
	m *metrics.Metrics,
) *AnswerSynthesizer {
	if settings.MaxContextHits < minContextHits {
		settings.MaxContextHits = domain.DefaultAnswerContextHits
	}
	if settings.MaxContextChars < minContextChars {
		settings.MaxContextChars = minContextChars
	}
	if settings.Timeout <= 0 {
		settings.Timeout = domain.DefaultAnswerTimeout
	}
	return &AnswerSynthesizer{
		llm:      llm,
		prompts:  prompts,
		settings: settings,
		metrics:  m,
	}
}

// Enabled reports whether a backend is configured.
func (a *AnswerSynthesizer) Enabled() bool {
	return a != nil && a.llm != nil
}

// MaxContextHits is how many merged hits the synthesizer reads.
func (a *AnswerSynthesizer) MaxContextHits() int {
	return a.settings.MaxContextHits
}

// Synthesize answers query from hits. Returns nil when disabled, when there
// is nothing to answer from, or when the backend fails or times out.
func (a *AnswerSynthesizer) Synthesize(ctx context.Context, query string, hits []domain.Hit) *string {
	if !a.Enabled() {
		return nil
	}

	snippets := a.buildContext(hits)
	if snippets == "" {
		return nil
	}

	prompt := strings.NewReplacer("{question}", query, "{snippets}", snippets).Replace(a.template())

	ctx, cancel := context.WithTimeout(ctx, a.settings.Timeout)
	defer cancel()

	started := time.Now()
	text, err := a.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   a.settings.MaxAnswerTokens,
		Temperature: 0.2,
	})
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		a.metrics.Answer(metrics.OutcomeTimeout)
		logger.Warn("answer synthesis timed out after %s", a.settings.Timeout)
		return nil
	case err != nil:
		a.metrics.Answer(metrics.OutcomeError)
		logger.Warn("answer synthesis failed: %v", err)
		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		a.metrics.Answer(metrics.OutcomeError)
		logger.Warn("answer synthesis returned an empty response")
		return nil
	}

	a.metrics.Answer(metrics.OutcomeOK)
	logger.Debug("Answer from %s in %s", a.llm.ModelName(), time.Since(started))
	return &text
}

func (a *AnswerSynthesizer) template() string {
	if a.prompts == nil {
		return fallbackAnswerPrompt
	}
	tmpl, err := a.prompts.Load(driven.PromptAnswer)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		if err != nil {
			logger.Warn("loading answer prompt: %v", err)
		}
		return fallbackAnswerPrompt
	}
	return tmpl
}

// buildContext lists the leading hits until the next entry would exceed
// the character budget.
func (a *AnswerSynthesizer) buildContext(hits []domain.Hit) string {
	var b strings.Builder
	used := 0
	for i, h := range hits {
		if i >= a.settings.MaxContextHits {
			break
		}
		entry := fmt.Sprintf("- [%s | %s]\n  title: %s\n  preview: %s\n", h.Source, h.Location, h.Title, h.Preview)
		n := utf8.RuneCountInString(entry)
		if used+n > a.settings.MaxContextChars {
			break
		}
		used += n
		b.WriteString(entry)
	}
	return b.String()
}
