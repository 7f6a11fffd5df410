package facematch

import "errors"

var (
	// ErrInvalidImage is returned when image bytes cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrNoFace is returned when no face is detected in an image.
	ErrNoFace = errors.New("no face detected")

	// ErrEmptyStore is returned when training is attempted with no enrolled samples.
	ErrEmptyStore = errors.New("no enrolled samples")

	// ErrCorruptSample is returned when a persisted sample cannot be decoded.
	ErrCorruptSample = errors.New("corrupt face sample")
)
