package models

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a catalogue entry. AuthorName and CategoryName are
// filled from joins and are never written.
type Book struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Pages        int        `json:"pages" db:"pages"`
	Rating       float64    `json:"rating" db:"rating"`
	AuthorID     uuid.UUID  `json:"authorId" db:"author_id"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty" db:"category_id"`
	CoverURL     string     `json:"coverUrl" db:"cover_url"`
	PublishDate  *string    `json:"publishDate,omitempty" db:"publish_date"`
	Annotation   string     `json:"annotation,omitempty" db:"annotation"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	AuthorName   string     `json:"authorName,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
}

// TableName returns the table name for the Book model
func (Book) TableName() string {
	return "books"
}

// NewBook creates a new Book instance
func NewBook(title string, authorID uuid.UUID) *Book {
	now := time.Now()
	return &Book{
		ID:        uuid.New(),
		Title:     title,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
