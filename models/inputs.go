package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateAuthorInput is the payload for creating an author
type CreateAuthorInput struct {
	FullName    string `json:"full_name" validate:"required,max=255"`
	DOB         string `json:"dob" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required"`
}

// CreateBookInput is the payload for adding a book to the catalogue
type CreateBookInput struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Pages       int        `json:"pages" validate:"gte=0"`
	Rating      float64    `json:"rating" validate:"gte=0,lte=5"`
	AuthorID    uuid.UUID  `json:"authorId" validate:"required"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	CoverURL    string     `json:"coverUrl" validate:"omitempty,url"`
	PublishDate *string    `json:"publishDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Annotation  string     `json:"annotation,omitempty"`
}

// UpsertUserBookInput adds a book to a library or updates its entry
type UpsertUserBookInput struct {
	BookID      uuid.UUID      `json:"bookId" validate:"required"`
	Rating      *int           `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Status      *ReadingStatus `json:"status,omitempty" validate:"omitempty,oneof=wishlist reading completed paused dropped"`
	Description *string        `json:"description,omitempty"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
}

// RemoveUserBookInput removes a book from a library
type RemoveUserBookInput struct {
	BookID uuid.UUID `json:"bookId" validate:"required"`
}
