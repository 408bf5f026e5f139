package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService runs indexing passes over the configured local sources.
type IndexService struct {
	settings *domain.Settings
	engine   driven.IndexEngine
	factory  driven.AdapterFactory
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewIndexService creates an index service. The metrics parameter is
// optional (can be nil).
func NewIndexService(
	settings *domain.Settings,
	engine driven.IndexEngine,
	factory driven.AdapterFactory,
	m *metrics.Metrics,
) *IndexService {
	return &IndexService{
		settings: settings,
		engine:   engine,
		factory:  factory,
		metrics:  m,
		now:      time.Now,
	}
}

// Index runs one pass over a single source.
//
// Items the manifest already holds with the same fingerprint are counted as
// unchanged and not rewritten. Documents that vanished from a fully
// enumerated source are removed. Changes are committed every commit_every
// documents and once more at the end.
func (s *IndexService) Index(ctx context.Context, source string, opts driving.IndexOptions) (*domain.IndexStats, error) {
	desc, ok := s.descriptor(source)
	if !ok {
		return nil, fmt.Errorf("%w: source %q is not configured", domain.ErrNotFound, source)
	}

	adapter, err := s.factory.Create(desc, s.settings.MaxIndexedChars)
	if err != nil {
		return nil, fmt.Errorf("create adapter for %s: %w", source, err)
	}
	defer adapter.Close()

	return s.run(ctx, adapter, opts)
}

// IndexAll runs a pass over every configured source in order.
func (s *IndexService) IndexAll(ctx context.Context, opts driving.IndexOptions) ([]domain.IndexStats, error) {
	var (
		all  []domain.IndexStats
		errs []error
	)
	for _, desc := range s.settings.Sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		stats, err := s.Index(ctx, desc.Name, opts)
		if err != nil {
			logger.Error("indexing %s failed: %v", desc.Name, err)
			errs = append(errs, fmt.Errorf("index %s: %w", desc.Name, err))
			continue
		}
		all = append(all, *stats)
	}
	return all, errors.Join(errs...)
}

// Watch reindexes a source whenever its adapter reports a change, until ctx
// is done. Sources whose adapters cannot watch are skipped. report is called
// after every pass and may be called from several goroutines.
func (s *IndexService) Watch(ctx context.Context, report func(domain.IndexStats)) error {
	var wg sync.WaitGroup
	watching := 0

	for _, desc := range s.settings.Sources {
		adapter, err := s.factory.Create(desc, s.settings.MaxIndexedChars)
		if err != nil {
			logger.Warn("cannot watch %s: %v", desc.Name, err)
			continue
		}
		watcher, ok := adapter.(driven.Watcher)
		if !ok {
			logger.Info("source %s (%s) does not support watching", desc.Name, desc.Kind)
			adapter.Close()
			continue
		}
		changes, err := watcher.Watch(ctx)
		if err != nil {
			logger.Warn("cannot watch %s: %v", desc.Name, err)
			adapter.Close()
			continue
		}

		watching++
		wg.Add(1)
		go func(name string, adapter driven.Adapter) {
			defer wg.Done()
			defer adapter.Close()
			for range changes {
				stats, err := s.Index(ctx, name, driving.IndexOptions{})
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("reindexing %s failed: %v", name, err)
					}
					continue
				}
				if report != nil {
					report(*stats)
				}
			}
		}(desc.Name, adapter)
	}

	if watching == 0 {
		return fmt.Errorf("%w: no configured source can be watched", domain.ErrInvalidInput)
	}
	logger.Info("watching %d source(s) for changes", watching)
	wg.Wait()
	return ctx.Err()
}

func (s *IndexService) descriptor(name string) (domain.SourceDescriptor, bool) {
	for _, desc := range s.settings.Sources {
		if desc.Name == name {
			return desc, true
		}
	}
	return domain.SourceDescriptor{}, false
}

// run drives one adapter into its shard.
//
//nolint:gocognit,gocyclo // Pass orchestration with sequential steps
func (s *IndexService) run(ctx context.Context, adapter driven.Adapter, opts driving.IndexOptions) (*domain.IndexStats, error) {
	source := adapter.Source()
	started := s.now()
	stats := &domain.IndexStats{PassID: uuid.NewString(), Source: source}

	logger.Section("Indexing " + source)
	logger.Debug("Pass %s, kind %s, rebuild=%t", stats.PassID, adapter.Kind(), opts.Rebuild)

	if err := adapter.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", source, err)
	}

	writer, err := s.engine.OpenWriter(ctx, source)
	if err != nil {
		return nil, err
	}
	defer writer.Close()
	manifest := writer.Manifest()

	skip := driven.NeverSkip
	if opts.Rebuild {
		if err := writer.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset %s: %w", source, err)
		}
	} else {
		skip = driven.ManifestSkip(manifest, source, func(docID string, err error) {
			logger.Warn("manifest lookup for %s failed: %v", docID, err)
		})
	}

	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	items, errs := adapter.Ingest(passCtx, skip)

	commitEvery := s.settings.CommitEvery
	if commitEvery <= 0 {
		commitEvery = domain.DefaultCommitEvery
	}

	seen := make(map[string]struct{})
	var complete *driven.IngestComplete
	pending := 0

	for items != nil || errs != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if ic, done := driven.IsIngestComplete(err); done {
				complete = ic
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("ingest %s: %w", source, err)
			}

		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			seen[item.DocID] = struct{}{}
			if item.Unchanged {
				stats.Unchanged++
				continue
			}
			if item.Document == nil {
				logger.Warn("source %s: item %s has no document", source, item.DocID)
				continue
			}

			if err := writer.IndexDocument(ctx, item.Document); err != nil {
				return nil, fmt.Errorf("index %s: %w", item.DocID, err)
			}
			entry := domain.ManifestEntry{
				Source:      source,
				DocID:       item.DocID,
				Fingerprint: item.Fingerprint,
				IndexedAt:   s.now(),
			}
			if err := manifest.Record(ctx, entry); err != nil {
				return nil, fmt.Errorf("record %s: %w", item.DocID, err)
			}
			stats.Indexed++

			pending++
			if pending >= commitEvery {
				if err := writer.Commit(ctx); err != nil {
					return nil, err
				}
				logger.Debug("Committed %d documents", pending)
				pending = 0
			}
		}
	}

	if complete == nil {
		return nil, fmt.Errorf("ingest %s: enumeration ended without completing", source)
	}
	stats.Scanned = complete.Scanned
	stats.Invalid = complete.Invalid

	if complete.FullyEnumerated {
		removed, err := manifest.Prune(ctx, source, seen)
		if err != nil {
			return nil, fmt.Errorf("prune %s: %w", source, err)
		}
		for _, docID := range removed {
			if err := writer.RemoveDocument(ctx, docID); err != nil {
				return nil, fmt.Errorf("remove %s: %w", docID, err)
			}
		}
		stats.Removed = len(removed)
	} else {
		logger.Warn("source %s was not fully enumerated, keeping unseen documents", source)
	}

	if err := writer.Commit(ctx); err != nil {
		return nil, err
	}

	stats.Duration = s.now().Sub(started)
	s.metrics.IndexPass(source, stats.Indexed, stats.Unchanged, stats.Invalid, stats.Removed, stats.Duration)
	logger.Info("Indexed %s: scanned=%d indexed=%d unchanged=%d invalid=%d removed=%d in %s",
		source, stats.Scanned, stats.Indexed, stats.Unchanged, stats.Invalid, stats.Removed, stats.Duration)
	return stats, nil
}
