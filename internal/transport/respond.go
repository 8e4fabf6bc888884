package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/editor"
)

// ErrorBody is the JSON error envelope returned by the API.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	SceneID string `json:"scene_id,omitempty"`
}

// StatusFor maps a domain error to an HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, editor.ErrSceneNotFound):
		return http.StatusNotFound, "SCENE_NOT_FOUND"
	case errors.Is(err, editor.ErrHotspotNotFound):
		return http.StatusNotFound, "HOTSPOT_NOT_FOUND"
	case errors.Is(err, editor.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, editor.ErrExportIncomplete):
		return http.StatusConflict, "EXPORT_INCOMPLETE"
	case errors.Is(err, blobstore.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	detail := ErrorDetail{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		detail.Message = "internal error"
	}
	var incomplete *editor.ExportIncompleteError
	if errors.As(err, &incomplete) {
		detail.SceneID = incomplete.SceneID
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}

func decodeJSON(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", editor.ErrInvalidInput, err)
	}
	return nil
}
