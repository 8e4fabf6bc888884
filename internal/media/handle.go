// Package media turns scene records into displayable image handles,
// hydrating images from the blob store or from embedded data.
package media

import "errors"

// ErrMissingMedia indicates a scene has no resolvable image.
var ErrMissingMedia = errors.New("scene has no resolvable image")

// Origin says who owns the resource behind a handle.
type Origin string

const (
	// OriginObjectStore handles reference local bytes that must be released.
	OriginObjectStore Origin = "object-store"
	// OriginExternal handles point at a remote URL; release is a no-op.
	OriginExternal Origin = "external-url"
)

// Handle is a displayable image reference for one scene.
type Handle struct {
	SceneID     string `json:"scene_id"`
	Ref         string `json:"ref"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Origin      Origin `json:"origin"`
	ContentType string `json:"content_type,omitempty"`
}

// Local reports whether releasing the handle frees a local reference.
func (h *Handle) Local() bool {
	return h != nil && h.Origin == OriginObjectStore
}
