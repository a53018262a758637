package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

var (
	queryFlat    bool
	queryRecents int
	queryTimeout time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query [text...]",
	Short: "Run one search and print the view state",
	Long: `Run one search over the fixtures. Arguments are joined into the query;
with no arguments the newest jobs are listed.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryFlat, "flat", false, "list matches individually instead of grouping by address and job number")
	queryCmd.Flags().IntVarP(&queryRecents, "recents", "n", search.DefaultRecentsLimit, "jobs listed when the query is empty")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", 10*time.Second, "give up if the search takes longer")
}

func runQuery(cmd *cobra.Command, args []string) error {
	corpus, dir, err := loadSources()
	if err != nil {
		return err
	}

	sess := search.NewSession(corpus, dir,
		search.WithDebounce(0),
		search.WithAggregation(!queryFlat),
		search.WithRecentsLimit(queryRecents),
		search.WithQuickFilterLimits(filtersPerKind, filtersTotal),
		search.WithObserver(func(st search.RebuildStats) {
			log.Debug().Uint64("seq", st.Seq).Str("outcome", string(st.Outcome)).
				Dur("took", st.Duration).Int("matches", st.Matches).Msg("rebuild")
		}),
	)
	defer sess.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, queryTimeout)
	defer cancel()
	sess.SetQuery(strings.Join(args, " "))
	if err := sess.Settle(ctx); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	snap := sess.Snapshot()
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), queryOutput{
			Query:   snap.State.Query,
			State:   snap.State,
			Filters: nonNil(snap.Filters),
		})
	}
	return writeState(cmd.OutOrStdout(), snap.State)
}

type queryOutput struct {
	Query   string               `json:"query"`
	State   search.ViewState     `json:"state"`
	Filters []search.QuickFilter `json:"filters"`
}
