package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a stored entry fails its integrity check
	ErrCorrupt = errors.New("stored entry failed integrity check")

	// ErrQuotaExceeded is returned when the backing store is out of space
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
