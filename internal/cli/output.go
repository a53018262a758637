package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

const dateLayout = "2006-01-02"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// writeState renders a view state as aligned text.
func writeState(w io.Writer, st search.ViewState) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch st.Kind {
	case search.ViewIdle:
		fmt.Fprintf(tw, "Recent jobs (%d):\n", len(st.Recents))
		for _, r := range st.Recents {
			writeResult(tw, r)
		}
	case search.ViewEmpty:
		fmt.Fprintf(tw, "No jobs match %q.\n", st.Query)
	case search.ViewResults:
		if len(st.Aggregates) > 0 {
			fmt.Fprintf(tw, "%d matches in %d groups for %q:\n", st.Count, len(st.Aggregates), st.Query)
			for _, a := range st.Aggregates {
				writeAggregate(tw, a)
			}
		} else {
			fmt.Fprintf(tw, "%d matches for %q:\n", st.Count, st.Query)
			for _, r := range st.Results {
				writeResult(tw, r)
			}
		}
	}
	return tw.Flush()
}

func writeResult(w io.Writer, r search.Result) {
	creator := ""
	if r.Creator != nil {
		creator = r.Creator.DisplayName()
	}
	fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
		formatDate(r.Entry.Date), r.Entry.Address, jobNumber(r.Entry.JobNumber), r.Entry.Status, creator)
}

func writeAggregate(w io.Writer, a search.Aggregate) {
	names := make([]string, 0, len(a.Contributors))
	for _, c := range a.Contributors {
		names = append(names, c.DisplayName())
	}
	fmt.Fprintf(w, "  %s\t%s\t%d jobs\t%v\n", a.Address, jobNumber(a.JobNumber), a.Count(), names)
	for _, m := range a.Members {
		fmt.Fprintf(w, "    %s\t%s\t%s\t\n", formatDate(m.Date), m.ID, m.Status)
	}
}

func writeFilters(w io.Writer, filters []search.QuickFilter) error {
	if len(filters) == 0 {
		_, err := fmt.Fprintln(w, "No quick filters.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range filters {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", f.Kind, f.Value, f.Count)
	}
	return tw.Flush()
}

func jobNumber(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return "#" + *p
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
