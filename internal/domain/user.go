package domain

import (
	"strings"
	"time"
)

// User is a crew member in the directory. Jobs reference users by ID through
// Job.CreatedBy; the search engine resolves that id to a display identity.
type User struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	FirstName string    `json:"first_name" gorm:"type:varchar(128)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(128)"`
	Position  string    `json:"position"   gorm:"type:varchar(128)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// FullName joins first and last name, skipping blanks.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
