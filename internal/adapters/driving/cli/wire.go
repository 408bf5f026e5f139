package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/ai"
	"github.com/custodia-labs/bunker-search/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bunker-search/internal/adapters/driven/kiwix"
	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bunker-search/internal/analysis"
	"github.com/custodia-labs/bunker-search/internal/connectors"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/services"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// wireServices loads the configuration and builds every service. A missing
// default configuration file falls back to defaults; a missing explicit one
// is an error.
func wireServices(path string, explicit bool) error {
	closeServices()

	cfg, err := loadSettings(path, explicit)
	if err != nil {
		return err
	}

	m := metrics.New()
	engine, err := sqlite.NewEngine(cfg.IndexDir, analysis.New())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	closers = append(closers, engine.Close)

	var fed driven.FederationClient
	if cfg.Kiwix != nil {
		client, err := kiwix.NewClient(*cfg.Kiwix, kiwix.WithMetrics(m))
		if err != nil {
			logger.Warn("kiwix federation disabled: %v", err)
			cfg.Kiwix = nil
		} else {
			fed = client
			closers = append(closers, client.Close)
		}
	}

	var answers *services.AnswerSynthesizer
	if cfg.Answer != nil {
		llm, err := ai.CreateAndValidateLLMService(cfg.Answer)
		switch {
		case llm == nil:
			logger.Warn("answer synthesis disabled: %v", err)
		default:
			if err != nil {
				// Kept: answers are skipped until the backend responds.
				logger.Warn("%v", err)
			}
			prompts := file.NewPromptStore(cfg.Answer.PromptDir)
			answers = services.NewAnswerSynthesizer(llm, prompts, *cfg.Answer, m)
		}
	}

	settings = cfg
	appMetrics = m
	federation = fed
	searchService = services.NewSearchService(cfg, engine, fed, answers, m)
	sourceService = services.NewSourceService(cfg, fed)
	indexService = services.NewIndexService(cfg, engine, connectors.NewFactory(nil), m)
	return nil
}

func loadSettings(path string, explicit bool) (*domain.Settings, error) {
	cfg, err := file.Load(path)
	if err == nil {
		logger.Debug("Loaded configuration from %s", path)
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		logger.Warn("no configuration at %s, using defaults", path)
		defaults := domain.DefaultSettings()
		return &defaults, nil
	}
	return nil, err
}
