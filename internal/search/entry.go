package search

import (
	"time"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
)

// IndexEntry is the searchable projection of a job. Entries are values: they
// are rebuilt wholesale on every corpus or query change, never patched.
type IndexEntry struct {
	ID            string    `json:"id"`
	Address       string    `json:"address"`
	JobNumber     *string   `json:"job_number,omitempty"`
	Status        string    `json:"status"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes,omitempty"`
	Assignments   string    `json:"assignments,omitempty"`
	MaterialsUsed string    `json:"materials_used,omitempty"`
	NIDFootage    string    `json:"nid_footage,omitempty"`
	CANFootage    string    `json:"can_footage,omitempty"`
}

// FromJob projects a full job. Text fields are copied verbatim; trimming
// happens at match time.
func FromJob(j domain.Job) IndexEntry {
	return IndexEntry{
		ID:            j.ID,
		Address:       j.Address,
		JobNumber:     cloneString(j.JobNumber),
		Status:        j.Status,
		CreatedBy:     cloneString(j.CreatedBy),
		Date:          j.Date,
		Notes:         j.Notes,
		Assignments:   j.Assignments,
		MaterialsUsed: j.MaterialsUsed,
		NIDFootage:    j.NIDFootage,
		CANFootage:    j.CANFootage,
	}
}

// Normalize re-normalizes a previously produced entry, detaching its
// optional fields from the source value.
func (e IndexEntry) Normalize() IndexEntry {
	e.JobNumber = cloneString(e.JobNumber)
	e.CreatedBy = cloneString(e.CreatedBy)
	return e
}

// FromRecord projects a shared-index row.
func FromRecord(r domain.IndexRecord) IndexEntry {
	return IndexEntry{
		ID:            r.ID,
		Address:       r.Address,
		JobNumber:     cloneString(r.JobNumber),
		Status:        r.Status,
		CreatedBy:     cloneString(r.CreatedBy),
		Date:          r.Date,
		Notes:         r.Notes,
		Assignments:   r.Assignments,
		MaterialsUsed: r.MaterialsUsed,
		NIDFootage:    r.NIDFootage,
		CANFootage:    r.CANFootage,
	}
}

// Record converts the entry back into a shared-index row.
func (e IndexEntry) Record() domain.IndexRecord {
	return domain.IndexRecord{
		ID:            e.ID,
		Address:       e.Address,
		JobNumber:     cloneString(e.JobNumber),
		Status:        e.Status,
		CreatedBy:     cloneString(e.CreatedBy),
		Date:          e.Date,
		Notes:         e.Notes,
		Assignments:   e.Assignments,
		MaterialsUsed: e.MaterialsUsed,
		NIDFootage:    e.NIDFootage,
		CANFootage:    e.CANFootage,
	}
}

// PartialJob expands the entry into a job for callers that need one when the
// full record is unavailable. Fields the entry does not carry get safe
// defaults: zero hours and an empty photo list.
func (e IndexEntry) PartialJob() domain.Job {
	return domain.Job{
		ID:            e.ID,
		Address:       e.Address,
		JobNumber:     cloneString(e.JobNumber),
		Status:        e.Status,
		Date:          e.Date,
		CreatedBy:     cloneString(e.CreatedBy),
		Notes:         e.Notes,
		MaterialsUsed: e.MaterialsUsed,
		Assignments:   e.Assignments,
		NIDFootage:    e.NIDFootage,
		CANFootage:    e.CANFootage,
		Hours:         0,
		Photos:        []string{},
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
