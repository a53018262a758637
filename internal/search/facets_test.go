package search

import (
	"fmt"
	"testing"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

func TestBuildQuickFilters_CapAndOrder(t *testing.T) {
	var us []domain.User
	for i := 1; i <= 5; i++ {
		us = append(us, domain.User{ID: fmt.Sprintf("u%d", i), FirstName: fmt.Sprintf("Tech%d", i), LastName: "Crew"})
	}
	dir := NewDirectory(us)

	// status Si and creator ui each appear i times (S5 five times, ...).
	statuses := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	var entries []IndexEntry
	n := 0
	for i := 1; i <= 5; i++ {
		for k := 0; k < i; k++ {
			n++
			entries = append(entries, IndexEntry{
				ID:        fmt.Sprintf("e%d", n),
				Status:    statuses[i-1],
				CreatedBy: strp(fmt.Sprintf("u%d", i)),
			})
		}
	}

	got := BuildQuickFilters(entries, dir, 4, 8)
	if len(got) != 8 {
		t.Fatalf("want 8 filters, got %d: %#v", len(got), got)
	}
	wantValues := []string{"Echo", "Delta", "Charlie", "Bravo", "Tech5 Crew", "Tech4 Crew", "Tech3 Crew", "Tech2 Crew"}
	for i, f := range got {
		if f.Value != wantValues[i] {
			t.Fatalf("filter %d = %q, want %q", i, f.Value, wantValues[i])
		}
		wantKind := FilterStatus
		if i >= 4 {
			wantKind = FilterCreator
		}
		if f.Kind != wantKind {
			t.Fatalf("filter %d kind = %s", i, f.Kind)
		}
		if f.Query() != f.Value {
			t.Fatalf("suggested query should equal the display value")
		}
	}
	if got[0].Count != 5 || got[3].Count != 2 {
		t.Fatalf("counts wrong: %#v", got)
	}
}

func TestBuildQuickFilters_TiesAndNormalization(t *testing.T) {
	entries := []IndexEntry{
		{ID: "1", Status: "pending"},
		{ID: "2", Status: "Pending "},
		{ID: "3", Status: "Done"},
		{ID: "4", Status: "blocked"},
		{ID: "5", Status: "  "},
		{ID: "6", Status: "Done", CreatedBy: strp("nobody")},
	}
	got := BuildQuickFilters(entries, nil, 4, 3)
	if len(got) != 3 {
		t.Fatalf("want 3 filters, got %#v", got)
	}
	// pending(2) and done(2) tie on count; name ascending puts done first.
	if got[0].Key != "done" || got[1].Key != "pending" || got[2].Key != "blocked" {
		t.Fatalf("order = %#v", got)
	}
	if got[1].Value != "pending" {
		t.Fatalf("display value should be the first spelling seen: %q", got[1].Value)
	}
	if len(BuildQuickFilters(entries, nil, 0, 8)) != 0 {
		t.Fatalf("zero per-kind cap should yield nothing")
	}
}
