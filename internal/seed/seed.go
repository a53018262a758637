// Package seed loads YAML fixtures (crew members, full jobs and bare shared
// index entries) and applies them to the catalog and directory. The server
// uses it at boot when SEED_PATH is set; the offline CLI builds in-memory
// sources from it.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
	"github.com/tbourn/go-jobsearch-backend/internal/services"
)

// dateLayouts are tried in order when parsing a fixture date.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04", "1/2/06", "1/2/2006"}

// User is a directory fixture.
type User struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Position  string `yaml:"position"`
}

// Job is a job fixture. Index entries use the same shape; hours and photos
// are ignored for them.
type Job struct {
	ID            string   `yaml:"id"`
	Address       string   `yaml:"address"`
	JobNumber     *string  `yaml:"job_number"`
	Status        string   `yaml:"status"`
	Date          string   `yaml:"date"`
	CreatedBy     *string  `yaml:"created_by"`
	Notes         string   `yaml:"notes"`
	MaterialsUsed string   `yaml:"materials_used"`
	Assignments   string   `yaml:"assignments"`
	NIDFootage    string   `yaml:"nid_footage"`
	CANFootage    string   `yaml:"can_footage"`
	Hours         float64  `yaml:"hours"`
	Photos        []string `yaml:"photos"`
}

// Fixtures is the parsed fixture file.
type Fixtures struct {
	Users []User `yaml:"users"`
	Jobs  []Job  `yaml:"jobs"`
	Index []Job  `yaml:"index"`
}

// Load reads and parses the fixture file at path.
func Load(path string) (Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, err
	}
	f, err := Parse(b)
	if err != nil {
		return Fixtures{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes fixtures, rejecting unknown keys, and validates them.
func Parse(data []byte) (Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.validate(); err != nil {
		return Fixtures{}, err
	}
	return f, nil
}

func (f Fixtures) validate() error {
	for i, u := range f.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
	}
	for i, j := range f.Jobs {
		if strings.TrimSpace(j.Address) == "" {
			return fmt.Errorf("jobs[%d]: address is required", i)
		}
		if _, err := parseDate(j.Date); err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
	}
	for i, j := range f.Index {
		if strings.TrimSpace(j.ID) == "" || strings.TrimSpace(j.Address) == "" {
			return fmt.Errorf("index[%d]: id and address are required", i)
		}
		if _, err := parseDate(j.Date); err != nil {
			return fmt.Errorf("index[%d]: %w", i, err)
		}
	}
	return nil
}

// parseDate accepts an empty value as the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// DomainUsers converts the user fixtures.
func (f Fixtures) DomainUsers() []domain.User {
	out := make([]domain.User, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, domain.User{
			ID:        strings.TrimSpace(u.ID),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Position:  u.Position,
		})
	}
	return out
}

// DomainJobs converts the job fixtures. Dates were validated by Parse.
func (f Fixtures) DomainJobs() []domain.Job {
	out := make([]domain.Job, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		d, _ := parseDate(j.Date)
		photos := j.Photos
		if photos == nil {
			photos = []string{}
		}
		out = append(out, domain.Job{
			ID:            strings.TrimSpace(j.ID),
			Address:       j.Address,
			JobNumber:     j.JobNumber,
			Status:        j.Status,
			Date:          d,
			CreatedBy:     j.CreatedBy,
			Notes:         j.Notes,
			MaterialsUsed: j.MaterialsUsed,
			Assignments:   j.Assignments,
			NIDFootage:    j.NIDFootage,
			CANFootage:    j.CANFootage,
			Hours:         j.Hours,
			Photos:        photos,
		})
	}
	return out
}

// Entries converts the bare index fixtures.
func (f Fixtures) Entries() []search.IndexEntry {
	out := make([]search.IndexEntry, 0, len(f.Index))
	for _, j := range f.Index {
		d, _ := parseDate(j.Date)
		out = append(out, search.IndexEntry{
			ID:            strings.TrimSpace(j.ID),
			Address:       j.Address,
			JobNumber:     j.JobNumber,
			Status:        j.Status,
			CreatedBy:     j.CreatedBy,
			Date:          d,
			Notes:         j.Notes,
			Assignments:   j.Assignments,
			MaterialsUsed: j.MaterialsUsed,
			NIDFootage:    j.NIDFootage,
			CANFootage:    j.CANFootage,
		})
	}
	return out
}

// Sources builds in-memory corpus and directory sources from the fixtures.
func (f Fixtures) Sources() (*search.MemoryCorpus, *search.MemoryDirectory) {
	return search.NewMemoryCorpus(f.DomainJobs(), f.Entries()), search.NewMemoryDirectory(f.DomainUsers())
}

// Result counts what Apply stored.
type Result struct {
	Users   int
	Jobs    int
	Skipped int
	Entries int
}

// Apply upserts users, creates jobs and imports index entries. Jobs whose id
// already exists are skipped; jobs without an id get a new one on every call.
func Apply(ctx context.Context, cat *services.Catalog, dir *services.Directory, f Fixtures) (Result, error) {
	var res Result
	for _, u := range f.DomainUsers() {
		if _, err := dir.Upsert(ctx, u); err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		res.Users++
	}
	for _, j := range f.DomainJobs() {
		_, err := cat.CreateJob(ctx, j)
		switch {
		case err == nil:
			res.Jobs++
		case errors.Is(err, services.ErrDuplicateJob):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed job %q: %w", j.Address, err)
		}
	}
	n, err := cat.ImportEntries(ctx, f.Entries())
	if err != nil {
		return res, fmt.Errorf("seed index: %w", err)
	}
	res.Entries = n
	return res, nil
}
