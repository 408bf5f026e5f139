package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bunker-search/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bunker-search/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/core/services"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

var serveBind string

// newScheduler builds the background scheduler of the serve command and a
// function releasing its state store.
var newScheduler = func() (driving.Scheduler, func() error, error) {
	var (
		tasks   driven.SchedulerStore
		release = func() error { return nil }
	)
	store, err := sqlite.NewStateStore(settings.IndexDir)
	if err != nil {
		logger.Warn("scheduler state unavailable, keeping it in memory: %v", err)
		tasks = memory.NewSchedulerStore()
	} else {
		tasks = store.SchedulerStore()
		release = store.Close
	}

	sched := services.NewScheduler(
		domain.SchedulerConfigFromSettings(settings),
		tasks,
		federation,
		indexService,
	)
	return sched, release, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP search API",
	Long: `Starts the HTTP API and the background scheduler, which refreshes the
Kiwix catalog and optionally reindexes local sources on an interval.

Endpoints:
  GET /api/search?q=&limit=&offset=&source=&answer=
  GET /api/sources
  GET /healthz
  GET /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBind, "bind", "", "listen address (default from configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil || settings == nil {
		return errors.New("search service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := httpapi.NewServer(
		httpapi.Ports{Search: searchService, Source: sourceService},
		httpapi.Options{
			AllowedOrigins: settings.CORSAllowedOrigins,
			Version:        version,
			Metrics:        appMetrics,
		},
	)
	if err != nil {
		return err
	}

	sched, closeStore, err := newScheduler()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing scheduler state: %v", err)
		}
	}()

	schedCtx, cancelSched := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Start(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler: %v", err)
		}
	}()

	bind := resolveBind(serveBind)
	cmd.Printf("Listening on http://%s\n", bind)
	err = server.Run(ctx, bind)

	cancelSched()
	if stopErr := sched.Stop(); stopErr != nil {
		logger.Warn("stopping scheduler: %v", stopErr)
	}
	wg.Wait()
	return err
}

func resolveBind(flag string) string {
	if flag != "" {
		return flag
	}
	if settings != nil && settings.Bind != "" {
		return settings.Bind
	}
	return domain.DefaultBind
}
