package blobstore

import (
	"encoding/hex"
	"net/http"
	"time"

	"github.com/zeebo/blake3"
)

// Blob is a stored scene image.
type Blob struct {
	Data        []byte    `json:"-"`
	ContentType string    `json:"content_type"`
	Hash        string    `json:"hash"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entry describes a stored blob without its payload.
type Entry struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewBlob wraps data with its sniffed content type and content hash.
func NewBlob(data []byte, now time.Time) Blob {
	return Blob{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Hash:        HashOf(data),
		Size:        int64(len(data)),
		UpdatedAt:   now.UTC(),
	}
}

// HashOf returns the hex BLAKE3 digest of data.
func HashOf(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Intact reports whether the payload still matches its recorded hash.
func (b *Blob) Intact() bool {
	return b.Hash == HashOf(b.Data) && b.Size == int64(len(b.Data))
}
