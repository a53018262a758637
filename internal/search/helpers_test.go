package search

import (
	"testing"
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

func strp(s string) *string { return &s }

func day(d int) time.Time { return time.Date(2025, time.March, d, 9, 0, 0, 0, time.UTC) }

func job(id, address, status string, date time.Time, createdBy string) domain.Job {
	j := domain.Job{ID: id, Address: address, Status: status, Date: date}
	if createdBy != "" {
		j.CreatedBy = strp(createdBy)
	}
	return j
}

func users() []domain.User {
	return []domain.User{
		{ID: "u1", FirstName: "Alice", LastName: "Nguyen", Position: "Splicer"},
		{ID: "u2", FirstName: "Bob", LastName: "Ortiz", Position: "Foreman"},
	}
}

// oakCorpus is two records of the same job site, spelled differently.
func oakCorpus() []domain.Job {
	return []domain.Job{
		job("1", "10 Oak Ave", "Pending", day(1), "u1"),
		job("2", "10 OAK AVE", "Done", day(2), "u2"),
	}
}

func ids(rs []Result) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func digestIDs(a Aggregate) []string {
	out := make([]string, 0, len(a.Members))
	for _, d := range a.Members {
		out = append(out, d.ID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
