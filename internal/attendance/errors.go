package attendance

import "errors"

var (
	// ErrInvalidInput marks requests rejected before touching storage.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced student or course does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the entity already exists.
	ErrConflict = errors.New("already exists")
)
