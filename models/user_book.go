package models

import (
	"time"

	"github.com/google/uuid"
)

// ReadingStatus is where a book stands in a user's library
type ReadingStatus string

const (
	StatusWishlist  ReadingStatus = "wishlist"
	StatusReading   ReadingStatus = "reading"
	StatusCompleted ReadingStatus = "completed"
	StatusPaused    ReadingStatus = "paused"
	StatusDropped   ReadingStatus = "dropped"
)

// IsValid reports whether s is a known status
func (s ReadingStatus) IsValid() bool {
	switch s {
	case StatusWishlist, StatusReading, StatusCompleted, StatusPaused, StatusDropped:
		return true
	}
	return false
}

// UserBook is a book in a user's personal library
type UserBook struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	UserID      uuid.UUID      `json:"userId" db:"user_id"`
	BookID      uuid.UUID      `json:"bookId" db:"book_id"`
	Rating      *int           `json:"rating,omitempty" db:"rating"`
	Status      *ReadingStatus `json:"status,omitempty" db:"status"`
	Description *string        `json:"description,omitempty" db:"description"`
	StartedAt   *time.Time     `json:"startedAt,omitempty" db:"started_at"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty" db:"finished_at"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the UserBook model
func (UserBook) TableName() string {
	return "user_books"
}

// UserBookWithDetails is a library entry joined with its book
type UserBookWithDetails struct {
	UserBook
	Title        string     `json:"title"`
	Pages        int        `json:"pages"`
	BookRating   float64    `json:"bookRating"`
	AuthorID     uuid.UUID  `json:"authorId"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CoverURL     string     `json:"coverUrl"`
	AuthorName   string     `json:"authorName"`
	CategoryName string     `json:"categoryName"`
}
