package domain

import (
	"strings"
	"time"
)

// Default settings values.
const (
	DefaultIndexDir           = "data/index"
	DefaultBind               = "127.0.0.1:8787"
	DefaultResultLimit        = 20
	DefaultMaxResultLimit     = 100
	DefaultMaxIndexedChars    = 200_000
	DefaultLocalTimeout       = 5 * time.Second
	DefaultCommitEvery        = 1000
	DefaultKiwixMaxHits       = 20
	DefaultKiwixTimeout       = 10 * time.Second
	DefaultKiwixRefresh       = 5 * time.Minute
	DefaultKiwixConcurrency   = 8
	DefaultAnswerTimeout      = 20 * time.Second
	DefaultAnswerContextHits  = 8
	DefaultAnswerContextChars = 4000
	DefaultAnswerMaxTokens    = 512
)

// Settings is the resolved application configuration.
type Settings struct {
	// IndexDir holds one shard per local source plus scheduler state.
	IndexDir string

	// Bind is the HTTP listen address.
	Bind string

	// CORSAllowedOrigins lists origins allowed to call the HTTP API.
	CORSAllowedOrigins []string

	// DefaultResultLimit is the page size when a request has none.
	DefaultResultLimit int

	// MaxResultLimit caps the page size.
	MaxResultLimit int

	// MaxIndexedChars caps the indexed body length in runes.
	MaxIndexedChars int

	// LocalTimeout bounds each local branch of a query.
	LocalTimeout time.Duration

	// CommitEvery is the number of indexed documents between commits.
	CommitEvery int

	// Sources are the valid local sources, in configuration order.
	Sources []SourceDescriptor

	// Kiwix is nil when federation is disabled.
	Kiwix *KiwixSettings

	// Answer is nil when answer synthesis is disabled.
	Answer *AnswerSettings

	// Schedule configures background tasks of the serve command.
	Schedule ScheduleSettings
}

// KiwixSettings configures the federation client.
type KiwixSettings struct {
	BaseURL              string
	Collections          []string
	Categories           []string
	AutoDiscover         bool
	MaxHitsPerCollection int
	Timeout              time.Duration
	RefreshInterval      time.Duration
	MaxConcurrency       int

	// RequestsPerSecond paces requests to the server. Zero means unlimited.
	RequestsPerSecond float64
}

// AnswerProvider identifies an answer synthesis backend.
type AnswerProvider string

// Available answer providers.
const (
	// AnswerProviderOllama is a local Ollama instance.
	AnswerProviderOllama AnswerProvider = "ollama"

	// AnswerProviderOpenAI is any OpenAI-compatible chat completions server.
	AnswerProviderOpenAI AnswerProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p AnswerProvider) IsValid() bool {
	switch p {
	case AnswerProviderOllama, AnswerProviderOpenAI:
		return true
	default:
		return false
	}
}

// AnswerSettings configures answer synthesis.
type AnswerSettings struct {
	Provider        AnswerProvider
	BaseURL         string
	Model           string
	APIKey          string
	Timeout         time.Duration
	MaxContextHits  int
	MaxContextChars int

	// MaxAnswerTokens caps the length of a generated answer.
	MaxAnswerTokens int

	// PromptDir holds user-editable prompt templates. Empty uses the
	// built-in template.
	PromptDir string
}

// ScheduleSettings configures background tasks.
type ScheduleSettings struct {
	// ReindexInterval runs an indexing pass from the server. Zero disables it.
	ReindexInterval time.Duration
}

// DefaultSettings returns settings with every default applied and no sources.
func DefaultSettings() Settings {
	return Settings{
		IndexDir:           DefaultIndexDir,
		Bind:               DefaultBind,
		DefaultResultLimit: DefaultResultLimit,
		MaxResultLimit:     DefaultMaxResultLimit,
		MaxIndexedChars:    DefaultMaxIndexedChars,
		LocalTimeout:       DefaultLocalTimeout,
		CommitEvery:        DefaultCommitEvery,
	}
}

// DefaultKiwixSettings returns federation defaults for the given server.
func DefaultKiwixSettings(baseURL string) KiwixSettings {
	return KiwixSettings{
		BaseURL:              strings.TrimRight(baseURL, "/"),
		AutoDiscover:         true,
		MaxHitsPerCollection: DefaultKiwixMaxHits,
		Timeout:              DefaultKiwixTimeout,
		RefreshInterval:      DefaultKiwixRefresh,
		MaxConcurrency:       DefaultKiwixConcurrency,
	}
}

// DefaultAnswerSettings returns answer synthesis defaults for a provider.
func DefaultAnswerSettings(provider AnswerProvider) AnswerSettings {
	return AnswerSettings{
		Provider:        provider,
		Timeout:         DefaultAnswerTimeout,
		MaxContextHits:  DefaultAnswerContextHits,
		MaxContextChars: DefaultAnswerContextChars,
		MaxAnswerTokens: DefaultAnswerMaxTokens,
	}
}

// LocalSourceNames returns the configured local source names in order.
func (s *Settings) LocalSourceNames() []string {
	names := make([]string, len(s.Sources))
	for i := range s.Sources {
		names[i] = s.Sources[i].Name
	}
	return names
}

// ClampLimit applies the default and maximum page size.
func (s *Settings) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = s.DefaultResultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if s.MaxResultLimit > 0 && limit > s.MaxResultLimit {
		limit = s.MaxResultLimit
	}
	return limit
}
