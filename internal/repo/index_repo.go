package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

// upsertBatch bounds the rows per INSERT statement.
const upsertBatch = 200

// UpsertIndexRecords inserts or replaces shared-index rows by id.
func UpsertIndexRecords(ctx context.Context, db *gorm.DB, recs []domain.IndexRecord) error {
	if len(recs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range recs {
		recs[i].UpdatedAt = now
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(recs, upsertBatch).Error
}

// ListIndexRecords returns every shared-index row, newest date first.
func ListIndexRecords(ctx context.Context, db *gorm.DB) ([]domain.IndexRecord, error) {
	var out []domain.IndexRecord
	err := db.WithContext(ctx).Order("date desc").Order("id").Find(&out).Error
	return out, err
}

// DeleteIndexRecord removes a shared-index row.
func DeleteIndexRecord(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.IndexRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
