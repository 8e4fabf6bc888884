package blobstore

import "errors"

var (
	// ErrStorageUnavailable indicates the host has no persistent blob
	// storage. Callers keep images in memory instead.
	ErrStorageUnavailable = errors.New("blob storage unavailable")
	// ErrInvalidID indicates an empty blob identifier.
	ErrInvalidID = errors.New("invalid blob id")
)
