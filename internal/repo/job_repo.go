// Thin repository functions for the Job model.
//
// All functions are context-aware and accept a *gorm.DB handle so they can be
// used inside transactions. There is no business logic here: validation and
// defaults live in services.Catalog.
//
// Error semantics:
//   - Missing rows yield ErrNotFound (gorm.ErrRecordNotFound).
//   - Primary-key collisions yield ErrDuplicate.
//   - Other DB errors are propagated as-is.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation also recognizes the plain-text errors glebarez/sqlite
// returns for UNIQUE failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}

// CreateJob inserts j. An empty ID is filled with a random UUID.
func CreateJob(ctx context.Context, db *gorm.DB, j *domain.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Photos == nil {
		j.Photos = []string{}
	}
	if err := db.WithContext(ctx).Create(j).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetJob fetches a live (not soft-deleted) job by id.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	var j domain.Job
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// SaveJob writes every column of j. The job must exist.
func SaveJob(ctx context.Context, db *gorm.DB, j *domain.Job) error {
	res := db.WithContext(ctx).Model(&domain.Job{}).Where("id = ?", j.ID).Select("*").Omit("created_at", "deleted_at").Updates(j)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteJob soft-deletes a job.
func DeleteJob(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Job{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobs returns every live job, newest date first.
func ListJobs(ctx context.Context, db *gorm.DB) ([]domain.Job, error) {
	var out []domain.Job
	err := db.WithContext(ctx).Order("date desc").Order("id").Find(&out).Error
	return out, err
}

// CountJobs returns the number of live jobs.
func CountJobs(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Job{}).Count(&total).Error
	return total, err
}

// ListJobsPage returns one page of live jobs, newest date first. The caller
// computes offset and limit.
func ListJobsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Job, error) {
	var out []domain.Job
	err := db.WithContext(ctx).
		Order("date desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
