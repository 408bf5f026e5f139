package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyKeep is the number of results kept per task.
const historyKeep = 100

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config     domain.SchedulerConfig
	store      driven.SchedulerStore
	federation driven.FederationClient
	indexer    driving.IndexService
	now        func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	active  map[string]struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
// The federation and indexer parameters are optional (can be nil); their
// tasks then complete without doing anything.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	federation driven.FederationClient,
	indexer driving.IndexService,
) *Scheduler {
	return &Scheduler{
		config:     config,
		store:      store,
		federation: federation,
		indexer:    indexer,
		now:        time.Now,
		active:     make(map[string]struct{}),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// taskNames maps built-in task IDs to display names.
var taskNames = map[string]string{
	domain.TaskIDCatalogRefresh: "Kiwix Catalog Refresh",
	domain.TaskIDReindex:        "Reindex Local Sources",
}

// initialiseTasks stores every built-in task, enabled or not, so a task
// switched off in configuration stops running.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDCatalogRefresh, domain.TaskIDReindex} {
		if err := s.ensureTask(ctx, id, taskNames[id], s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		if !cfg.Enabled {
			return nil
		}
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  true,
			NextRun:  s.now().Add(cfg.Interval),
		}
	} else {
		if cfg.Enabled && task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every enabled task whose next run has passed
// and that is not still running.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled || task.NextRun.After(now) {
			continue
		}
		s.runTask(ctx, &task)
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if _, busy := s.active[task.ID]; busy {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.active[task.ID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDCatalogRefresh:
			result.ItemsProcessed, err = s.runCatalogRefresh(ctx)
		case domain.TaskIDReindex:
			result.ItemsProcessed, err = s.runReindex(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: task %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
			logger.Info("scheduler: task %s processed %d item(s)", task.ID, result.ItemsProcessed)
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// The run may outlive ctx; its bookkeeping must still land.
		storeCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
			logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}
		if pruneErr := s.store.PruneHistory(storeCtx, historyKeep); pruneErr != nil {
			logger.Warn("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runCatalogRefresh re-reads the Kiwix catalog and reports the collection count.
func (s *Scheduler) runCatalogRefresh(ctx context.Context) (int, error) {
	if s.federation == nil {
		return 0, nil
	}
	if err := s.federation.Refresh(ctx); err != nil {
		return 0, err
	}
	return len(s.federation.Collections(ctx)), nil
}

// runReindex runs an incremental pass over every source and reports the
// number of documents written.
func (s *Scheduler) runReindex(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}
	stats, err := s.indexer.IndexAll(ctx, driving.IndexOptions{})
	indexed := 0
	for _, st := range stats {
		indexed += st.Indexed + st.Removed
	}
	return indexed, err
}
