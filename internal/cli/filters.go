package cli

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Print the quick filters for the whole corpus",
	Args:  cobra.NoArgs,
	RunE:  runFilters,
}

func runFilters(cmd *cobra.Command, _ []string) error {
	corpus, dir, err := loadSources()
	if err != nil {
		return err
	}
	snap := search.Build("", corpus.Corpus(), dir.Directory(),
		search.WithQuickFilterLimits(filtersPerKind, filtersTotal),
		search.WithRecentsLimit(0),
	)
	filters := snap.Filters

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Filters []search.QuickFilter `json:"filters"`
		}{nonNil(filters)})
	}
	return writeFilters(cmd.OutOrStdout(), filters)
}
