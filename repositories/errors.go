package repositories

import "errors"

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")

	// ErrReference is returned when a foreign key points nowhere
	ErrReference = errors.New("referenced record does not exist")
)
