package editor

import (
	"context"

	"github.com/rpggio/panotour/internal/media"
)

// BlobStore persists scene images.
type BlobStore interface {
	media.BlobStore
	Available(ctx context.Context) bool
}
