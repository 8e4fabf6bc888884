package tour

import "errors"

var (
	// ErrMalformedPersisted indicates a corrupt snapshot or import file.
	ErrMalformedPersisted = errors.New("malformed persisted project")
)
