// Package cli implements the offline jobsearch command: it loads YAML
// fixtures into in-memory sources and runs searches without a database or
// server.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/seed"
	"github.com/tbourn/go-jobsearch-backend/internal/sysutil"
)

var (
	seedPath       string
	logLevel       string
	outputJSON     bool
	filtersPerKind int
	filtersTotal   int
)

var rootCmd = &cobra.Command{
	Use:   "jobsearch",
	Short: "Search field-service job fixtures offline",
	Long: `jobsearch runs the job search engine over a YAML fixture file.

Examples:
  jobsearch query --seed fixtures.yaml oak pending
  jobsearch query --seed fixtures.yaml --flat --json 4471
  jobsearch filters --seed fixtures.yaml`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		sysutil.SetupLogger(cmd.ErrOrStderr(), true, logLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&seedPath, "seed", "", "YAML fixture file with users, jobs and index entries")
	pf.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVar(&outputJSON, "json", false, "output as JSON")
	pf.IntVar(&filtersPerKind, "filters-per-kind", search.DefaultFiltersPerKind, "quick filters per kind")
	pf.IntVar(&filtersTotal, "filters-total", search.DefaultFiltersTotal, "quick filters in total")
	_ = rootCmd.MarkPersistentFlagRequired("seed")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(filtersCmd)
}

// loadSources reads the fixture file into in-memory search sources.
func loadSources() (*search.MemoryCorpus, *search.MemoryDirectory, error) {
	fx, err := seed.Load(seedPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load fixtures: %w", err)
	}
	corpus, dir := fx.Sources()
	return corpus, dir, nil
}
