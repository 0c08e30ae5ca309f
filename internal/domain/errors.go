package domain

import "errors"

var (
	// ErrNotFound is returned when a store lookup has no match.
	ErrNotFound = errors.New("not found")

	// ErrMultipleMatches is returned when a natural-key lookup matches more than one record.
	ErrMultipleMatches = errors.New("multiple records match")

	// ErrInvalidEncoding is returned when an import payload is not valid UTF-8.
	ErrInvalidEncoding = errors.New("payload is not valid UTF-8")

	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrSelfParent is returned when a write would make a location its own parent.
	ErrSelfParent = errors.New("location cannot be its own parent")

	// ErrUnknownSiteSuffix is returned by ClassifySite for names without a recognized suffix.
	ErrUnknownSiteSuffix = errors.New("unrecognized site name suffix")
)
