package ledger

import "errors"

var (
	// ErrCategoryExists is returned when the owner already has a category with that name.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryNotFound is returned for unknown category ids, including ids owned by someone else.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInvalidInput is returned for malformed create/update payloads.
	ErrInvalidInput = errors.New("invalid ledger input")
	// ErrInvalidFilter is returned when a filter value cannot be bound to its column type.
	ErrInvalidFilter = errors.New("invalid filter")
)
