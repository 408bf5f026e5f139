// Package cli implements the bunker-search command line using cobra.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bunker-search/internal/adapters/driving/mcp"
	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driving"
	"github.com/custodia-labs/bunker-search/internal/logger"
	"github.com/custodia-labs/bunker-search/internal/metrics"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "bunker-search.toml"

// skipServices marks commands that run without configuration.
const skipServices = "skip-services"

var (
	version = "dev"

	configPath string
	verbose    bool
)

// Services shared by every command. They are wired by loadServices before
// a command runs.
var (
	settings      *domain.Settings
	searchService driving.SearchService
	sourceService driving.SourceService
	indexService  driving.IndexService
	federation    driven.FederationClient
	appMetrics    *metrics.Metrics
	closers       []func() error
)

// loadServices wires the services from the configuration file.
var loadServices = wireServices

var rootCmd = &cobra.Command{
	Use:   "bunker-search",
	Short: "Offline search over local datasets and Kiwix archives",
	Long: `bunker-search indexes local document collections (directories, JSON-lines
files and Stack Exchange dumps) and searches them together with the
collections of a Kiwix server. Results can be summarised by a local LLM.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
		mcp.Version = v
	}
	defer closeServices()
	return rootCmd.Execute()
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[skipServices] == "true" {
		return nil
	}
	explicit := cmd.Flags().Changed("config")
	return loadServices(configPath, explicit)
}

func closeServices() {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("closing services: %v", err)
	}
}
