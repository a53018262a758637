package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

func TestJobsStats_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := JobsStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing jobs table")
	}
}

func TestJobsStats_ZeroRows(t *testing.T) {
	db := migrated(t)
	count, maxAt, err := JobsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("JobsStats: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestJobsStats_CountAndLatest(t *testing.T) {
	db := migrated(t)
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)
	rows := []domain.Job{
		{ID: "a", Address: "A", Status: "Done", UpdatedAt: t1, Photos: []string{}},
		{ID: "b", Address: "B", Status: "Done", UpdatedAt: t2, Photos: []string{}},
	}
	// Non-zero UpdatedAt values are kept on insert.
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, maxAt, err := JobsStats(ctx, db)
	if err != nil {
		t.Fatalf("JobsStats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("got (%d, %v), want (2, %v)", count, maxAt, t2)
	}

	// Soft-deleted rows drop out of the stats.
	if err := DeleteJob(ctx, db, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if count, _, _ := JobsStats(ctx, db); count != 1 {
		t.Fatalf("count after delete = %d", count)
	}
}

func TestIndexAndUsersStats(t *testing.T) {
	db := migrated(t)
	ctx := context.Background()

	if err := UpsertIndexRecords(ctx, db, []domain.IndexRecord{{ID: "r1", Address: "X"}}); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	if err := UpsertUser(ctx, db, &domain.User{ID: "u1", FirstName: "A"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if n, at, err := IndexStats(ctx, db); err != nil || n != 1 || at == nil {
		t.Fatalf("IndexStats = %d %v %v", n, at, err)
	}
	if n, at, err := UsersStats(ctx, db); err != nil || n != 1 || at == nil {
		t.Fatalf("UsersStats = %d %v %v", n, at, err)
	}
}
