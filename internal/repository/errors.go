package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSlug is returned when trying to create a tenant with an existing slug
	ErrDuplicateSlug = errors.New("tenant with this slug already exists")

	// ErrDuplicateLocation is returned when a location with the same provider id already exists
	ErrDuplicateLocation = errors.New("location with this google location id already exists")

	// ErrDuplicateReview is returned when a review with the same provider id already exists
	ErrDuplicateReview = errors.New("review with this google review id already exists")
)
