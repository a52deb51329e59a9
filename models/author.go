package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// Author represents a book author
type Author struct {
	ID          uuid.UUID `json:"id" db:"id"`
	FullName    string    `json:"full_name" db:"full_name"`
	DOB         string    `json:"dob" db:"dob"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Author model
func (Author) TableName() string {
	return "authors"
}

// NewAuthor creates a new Author instance
func NewAuthor(fullName, dob, description string) *Author {
	return &Author{
		ID:          uuid.New(),
		FullName:    fullName,
		DOB:         dob,
		Description: description,
		CreatedAt:   time.Now(),
	}
}
