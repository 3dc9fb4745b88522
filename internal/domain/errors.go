package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation rules.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")
)
