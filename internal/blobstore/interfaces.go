package blobstore

import "context"

// Backend persists blobs. Get returns repository.ErrNotFound for a
// missing id; Delete of a missing id is not an error.
type Backend interface {
	Put(ctx context.Context, id string, blob Blob) error
	Get(ctx context.Context, id string) (*Blob, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
}

// Opener prepares a Backend. It is called at most once per Store.
type Opener func(ctx context.Context) (Backend, error)
