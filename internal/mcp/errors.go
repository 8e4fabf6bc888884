package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/editor"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var incomplete *editor.ExportIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return &APIError{
			Code:         "EXPORT_INCOMPLETE",
			Message:      err.Error(),
			Details:      map[string]string{"scene_id": incomplete.SceneID, "title": incomplete.Title},
			RecoveryHint: "Re-add the room's image or delete the room, then export again",
		}
	case errors.Is(err, editor.ErrSceneNotFound):
		return &APIError{Code: "SCENE_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call list_scenes for valid ids"}
	case errors.Is(err, editor.ErrHotspotNotFound):
		return &APIError{Code: "HOTSPOT_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call get_project for hotspot ids"}
	case errors.Is(err, editor.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, blobstore.ErrStorageUnavailable):
		return &APIError{Code: "STORAGE_UNAVAILABLE", Message: err.Error(), RecoveryHint: "Edits are kept in memory only"}
	default:
		return nil
	}
}

func invalidArgs(format string, args ...any) error {
	return fmt.Errorf("%w: %s", editor.ErrInvalidInput, fmt.Sprintf(format, args...))
}
