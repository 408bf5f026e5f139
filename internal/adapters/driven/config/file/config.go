package file

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// fileConfig mirrors the TOML layout. Zero values mean "use the default".
type fileConfig struct {
	IndexDir           string         `toml:"index_dir"`
	Bind               string         `toml:"bind"`
	CORSAllowedOrigins []string       `toml:"cors_allowed_origins"`
	DefaultResultLimit int            `toml:"default_result_limit"`
	MaxResultLimit     int            `toml:"max_result_limit"`
	MaxIndexedChars    int            `toml:"max_indexed_chars"`
	LocalTimeoutSecs   int            `toml:"local_timeout_secs"`
	CommitEvery        int            `toml:"commit_every"`
	Sources            []sourceConfig `toml:"sources"`
	Kiwix              *kiwixConfig   `toml:"kiwix"`
	Answer             *answerConfig  `toml:"answer"`
	Ollama             *answerConfig  `toml:"ollama"`
	Schedule           scheduleConfig `toml:"schedule"`
}

type sourceConfig struct {
	Name           string   `toml:"name"`
	Type           string   `toml:"type"`
	Path           string   `toml:"path"`
	Extensions     []string `toml:"extensions"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	IDField        string   `toml:"id_field"`
	TitleField     string   `toml:"title_field"`
	BodyField      string   `toml:"body_field"`
	URLField       string   `toml:"url_field"`
	SiteURL        string   `toml:"site_url"`
}

type kiwixConfig struct {
	BaseURL              string   `toml:"base_url"`
	Collections          []string `toml:"collections"`
	Categories           []string `toml:"categories"`
	AutoDiscover         *bool    `toml:"auto_discover_collections"`
	MaxHitsPerCollection int      `toml:"max_hits_per_collection"`
	TimeoutSecs          int      `toml:"timeout_secs"`
	RefreshIntervalSecs  int      `toml:"refresh_interval_secs"`
	MaxConcurrency       int      `toml:"max_concurrency"`
	RequestsPerSecond    float64  `toml:"requests_per_second"`
}

type answerConfig struct {
	Provider        string `toml:"provider"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	APIKey          string `toml:"api_key"`
	TimeoutSecs     int    `toml:"timeout_secs"`
	MaxContextHits  int    `toml:"max_context_hits"`
	MaxContextChars int    `toml:"max_context_chars"`
	MaxAnswerTokens int    `toml:"max_answer_tokens"`
	PromptDir       string `toml:"prompt_dir"`
}

type scheduleConfig struct {
	ReindexIntervalSecs int `toml:"reindex_interval_secs"`
}

// Load reads and resolves the configuration file at path.
//
// A missing or malformed file is an error. Problems confined to one source,
// the [kiwix] table or the [answer] table are logged and that part is
// dropped so the rest of the configuration stays usable.
func Load(path string) (*domain.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse resolves configuration from TOML bytes.
func Parse(data []byte) (*domain.Settings, error) {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", domain.ErrInvalidConfig, row, col, decodeErr.Error())
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	settings := domain.DefaultSettings()
	if fc.IndexDir != "" {
		settings.IndexDir = fc.IndexDir
	}
	if fc.Bind != "" {
		settings.Bind = fc.Bind
	}
	settings.CORSAllowedOrigins = fc.CORSAllowedOrigins
	settings.DefaultResultLimit = positiveOr(fc.DefaultResultLimit, settings.DefaultResultLimit)
	settings.MaxResultLimit = positiveOr(fc.MaxResultLimit, settings.MaxResultLimit)
	if settings.DefaultResultLimit > settings.MaxResultLimit {
		logger.Warn("default_result_limit %d exceeds max_result_limit %d, using %d",
			settings.DefaultResultLimit, settings.MaxResultLimit, settings.MaxResultLimit)
		settings.DefaultResultLimit = settings.MaxResultLimit
	}
	settings.MaxIndexedChars = positiveOr(fc.MaxIndexedChars, settings.MaxIndexedChars)
	settings.LocalTimeout = secondsOr(fc.LocalTimeoutSecs, settings.LocalTimeout)
	settings.CommitEvery = positiveOr(fc.CommitEvery, settings.CommitEvery)
	if fc.Schedule.ReindexIntervalSecs > 0 {
		settings.Schedule.ReindexInterval = time.Duration(fc.Schedule.ReindexIntervalSecs) * time.Second
	}

	settings.Sources = resolveSources(fc.Sources)
	settings.Kiwix = resolveKiwix(fc.Kiwix)
	settings.Answer = resolveAnswer(fc.Answer, fc.Ollama)

	return &settings, nil
}

// resolveSources validates each source and drops invalid or duplicate ones.
func resolveSources(sources []sourceConfig) []domain.SourceDescriptor {
	resolved := make([]domain.SourceDescriptor, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))

	for i, sc := range sources {
		desc := domain.SourceDescriptor{
			Name:           strings.TrimSpace(sc.Name),
			Kind:           domain.SourceKind(strings.ToLower(strings.TrimSpace(sc.Type))),
			Path:           sc.Path,
			Extensions:     sc.Extensions,
			FollowSymlinks: sc.FollowSymlinks,
			IDField:        sc.IDField,
			TitleField:     sc.TitleField,
			BodyField:      sc.BodyField,
			URLField:       sc.URLField,
			SiteURL:        sc.SiteURL,
		}
		if err := desc.Validate(); err != nil {
			logger.Warn("skipping source #%d (%q): %v", i+1, sc.Name, err)
			continue
		}
		if _, dup := seen[desc.Name]; dup {
			logger.Warn("skipping source #%d: duplicate name %q", i+1, desc.Name)
			continue
		}
		seen[desc.Name] = struct{}{}
		resolved = append(resolved, desc)
	}
	return resolved
}

func resolveKiwix(kc *kiwixConfig) *domain.KiwixSettings {
	if kc == nil {
		return nil
	}
	if strings.TrimSpace(kc.BaseURL) == "" {
		logger.Warn("[kiwix] has no base_url, federation disabled")
		return nil
	}

	k := domain.DefaultKiwixSettings(strings.TrimSpace(kc.BaseURL))
	k.Collections = nonEmpty(kc.Collections)
	k.Categories = nonEmpty(kc.Categories)
	if kc.AutoDiscover != nil {
		k.AutoDiscover = *kc.AutoDiscover
	}
	k.MaxHitsPerCollection = positiveOr(kc.MaxHitsPerCollection, k.MaxHitsPerCollection)
	k.Timeout = secondsOr(kc.TimeoutSecs, k.Timeout)
	k.RefreshInterval = secondsOr(kc.RefreshIntervalSecs, k.RefreshInterval)
	k.MaxConcurrency = positiveOr(kc.MaxConcurrency, k.MaxConcurrency)
	if kc.RequestsPerSecond > 0 {
		k.RequestsPerSecond = kc.RequestsPerSecond
	}
	return &k
}

// resolveAnswer prefers [answer]. The older [ollama] table is read as an
// ollama provider when [answer] is absent.
func resolveAnswer(ac, legacy *answerConfig) *domain.AnswerSettings {
	if ac == nil && legacy != nil {
		ac = legacy
		ac.Provider = string(domain.AnswerProviderOllama)
	} else if ac != nil && legacy != nil {
		logger.Warn("both [answer] and [ollama] are set, ignoring [ollama]")
	}
	if ac == nil {
		return nil
	}

	provider := domain.AnswerProvider(strings.ToLower(strings.TrimSpace(ac.Provider)))
	if provider == "" {
		provider = domain.AnswerProviderOllama
	}
	if !provider.IsValid() {
		logger.Warn("[answer] provider %q is not supported, answer synthesis disabled", ac.Provider)
		return nil
	}

	a := domain.DefaultAnswerSettings(provider)
	a.BaseURL = strings.TrimRight(strings.TrimSpace(ac.BaseURL), "/")
	a.Model = strings.TrimSpace(ac.Model)
	a.APIKey = ac.APIKey
	if a.APIKey == "" && provider == domain.AnswerProviderOpenAI {
		a.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	a.Timeout = secondsOr(ac.TimeoutSecs, a.Timeout)
	a.MaxContextHits = positiveOr(ac.MaxContextHits, a.MaxContextHits)
	a.MaxContextChars = positiveOr(ac.MaxContextChars, a.MaxContextChars)
	a.MaxAnswerTokens = positiveOr(ac.MaxAnswerTokens, a.MaxAnswerTokens)
	a.PromptDir = ac.PromptDir
	return &a
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func secondsOr(secs int, def time.Duration) time.Duration {
	if secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
