package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List searchable sources",
	Long: `Lists the configured local sources and, when a Kiwix server is
configured, the "kiwix" alias and every discovered collection. Each name
can be passed to search --source.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}
	ctx := cmd.Context()

	names, err := sourceService.Names(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	details, err := sourceDetails(cmd)
	if err != nil {
		return err
	}

	cmd.Println("Sources:")
	for _, name := range names {
		if d := details[name]; d != "" {
			cmd.Printf("  %-28s %s\n", name, d)
		} else {
			cmd.Printf("  %s\n", name)
		}
	}
	return nil
}

// sourceDetails describes each source name in one line.
func sourceDetails(cmd *cobra.Command) (map[string]string, error) {
	ctx := cmd.Context()

	local, err := sourceService.Local(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing local sources: %w", err)
	}
	collections, err := sourceService.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	details := make(map[string]string, len(local)+len(collections)+1)
	for _, d := range local {
		details[d.Name] = fmt.Sprintf("%s  %s", d.Kind, d.Path)
	}
	details[string(domain.SourceKindKiwix)] = "all Kiwix collections"
	for _, c := range collections {
		line := c.Title
		if c.Language != "" {
			line += " [" + c.Language + "]"
		}
		details[c.SourceName()] = line
	}
	return details, nil
}
