package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrSceneNotFound indicates the scene doesn't exist.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrHotspotNotFound indicates the hotspot doesn't exist on the scene.
	ErrHotspotNotFound = errors.New("hotspot not found")
	// ErrInvalidInput indicates invalid editor input.
	ErrInvalidInput = errors.New("invalid editor input")
	// ErrExportIncomplete indicates an export was aborted because a scene
	// has no image.
	ErrExportIncomplete = errors.New("export incomplete")
)

// ExportIncompleteError names the scene that blocked an export.
type ExportIncompleteError struct {
	SceneID string
	Title   string
}

func (e *ExportIncompleteError) Error() string {
	return fmt.Sprintf("export incomplete: scene %q (%s) has no image", e.Title, e.SceneID)
}

// Unwrap lets errors.Is match ErrExportIncomplete.
func (e *ExportIncompleteError) Unwrap() error {
	return ErrExportIncomplete
}
