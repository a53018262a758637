// Package domain defines the persistence models for field-service jobs, the
// crew directory, and the lightweight shared job index. These types are
// mapped with GORM and are read by the search engine as an external corpus.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Default status applied to jobs created without one.
const StatusPending = "Pending"

// Job is a single field-service job record.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Address: free text, may hold comma separated components.
//   - JobNumber: optional work-order number; nil and "" are both "no number".
//   - Status: free text such as "Pending", "Done", "Needs Underground".
//   - Date: the job date used for ordering (not range filtering).
//   - CreatedBy: optional user id of the author, resolved via the directory.
//   - Notes, MaterialsUsed, Assignments, NIDFootage, CANFootage: free text.
//   - Hours / Photos: timesheet and attachment data, not searchable.
type Job struct {
	ID            string         `json:"id"                   gorm:"type:char(36);primaryKey"`
	Address       string         `json:"address"              gorm:"type:varchar(255);not null;index:idx_jobs_address"`
	JobNumber     *string        `json:"job_number,omitempty" gorm:"type:varchar(64)"`
	Status        string         `json:"status"               gorm:"type:varchar(64);not null;default:'Pending'"`
	Date          time.Time      `json:"date"                 gorm:"index:idx_jobs_date"`
	CreatedBy     *string        `json:"created_by,omitempty" gorm:"type:varchar(64);index"`
	Notes         string         `json:"notes"                gorm:"type:text"`
	MaterialsUsed string         `json:"materials_used"       gorm:"type:text"`
	Assignments   string         `json:"assignments"          gorm:"type:text"`
	NIDFootage    string         `json:"nid_footage"          gorm:"type:varchar(64)"`
	CANFootage    string         `json:"can_footage"          gorm:"type:varchar(64)"`
	Hours         float64        `json:"hours"`
	Photos        []string       `json:"photos"               gorm:"serializer:json;type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"                    gorm:"index"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string { return "jobs" }

// IndexRecord is a row of the shared job index: a lightweight projection of a
// job that is searchable locally even though the full record lives elsewhere
// (another crew's store). It never carries hours or photos.
type IndexRecord struct {
	ID            string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	Address       string    `json:"address"              gorm:"type:varchar(255);not null"`
	JobNumber     *string   `json:"job_number,omitempty" gorm:"type:varchar(64)"`
	Status        string    `json:"status"               gorm:"type:varchar(64)"`
	Date          time.Time `json:"date"                 gorm:"index"`
	CreatedBy     *string   `json:"created_by,omitempty" gorm:"type:varchar(64)"`
	Notes         string    `json:"notes"                gorm:"type:text"`
	MaterialsUsed string    `json:"materials_used"       gorm:"type:text"`
	Assignments   string    `json:"assignments"          gorm:"type:text"`
	NIDFootage    string    `json:"nid_footage"          gorm:"type:varchar(64)"`
	CANFootage    string    `json:"can_footage"          gorm:"type:varchar(64)"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for IndexRecord.
func (IndexRecord) TableName() string { return "job_index" }
