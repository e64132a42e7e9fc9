package models

import "errors"

var (
	// ErrInvalidName is returned for empty, over-length or non-printable habit names
	ErrInvalidName = errors.New("invalid habit name")
	// ErrInvalidStatus is returned for status values outside the enum
	ErrInvalidStatus = errors.New("invalid habit status")
	// ErrIDMismatch is returned when merging two habits with different ids
	ErrIDMismatch = errors.New("cannot merge habits with different ids")
	// ErrInvalidDay is returned for dates not in YYYY-MM-DD form
	ErrInvalidDay = errors.New("invalid day")
	// ErrDuplicateID is returned when a habit list would hold two habits with one id
	ErrDuplicateID = errors.New("duplicate habit id")
	// ErrMissingHabits is returned when a list document has no habits array
	ErrMissingHabits = errors.New("habit list document has no habits array")
)
