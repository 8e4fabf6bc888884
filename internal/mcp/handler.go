package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/rpggio/panotour/internal/media"
)

// Handler dispatches MCP commands.
type Handler struct {
	editor Editor
}

// NewHandler creates a new MCP handler.
func NewHandler(ed Editor) *Handler {
	return &Handler{editor: ed}
}

// Handle runs one tool call. A json.RawMessage result is passed through as-is.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "get_project":
		return projectResponse(h.editor.Project()), nil
	case "list_scenes":
		scenes, err := h.editor.Scenes(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		return ListScenesResponse{StartScene: h.editor.Project().StartScene, Scenes: scenes}, nil
	case "add_scene":
		var req AddSceneParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		name, data, err := sceneSource(req)
		if err != nil {
			return nil, err
		}
		scene, err := h.editor.CreateScene(ctx, name, data)
		if err != nil {
			return nil, mapError(err)
		}
		return sceneView(*scene), nil
	case "rename_scene":
		var req RenameSceneParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.RenameScene(req.SceneID, req.Title); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "delete_scene":
		var req SceneIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.DeleteScene(ctx, req.SceneID); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "set_start_scene":
		var req SceneIDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.SetStartScene(req.SceneID); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "save_view":
		var req SaveViewParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.SaveView(req.SceneID, req.Pitch, req.Yaw, req.Hfov); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "add_link_hotspot":
		var req AddLinkHotspotParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		hs, err := h.editor.AddLinkHotspot(req.SceneID, req.TargetID, req.Pitch, req.Yaw)
		if err != nil {
			return nil, mapError(err)
		}
		return hs, nil
	case "add_info_hotspot":
		var req AddInfoHotspotParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		hs, err := h.editor.AddInfoHotspot(req.SceneID, req.Text, req.Pitch, req.Yaw)
		if err != nil {
			return nil, mapError(err)
		}
		return hs, nil
	case "move_hotspot":
		var req MoveHotspotParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.MoveHotspot(req.SceneID, req.HotspotID, req.Pitch, req.Yaw); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "update_hotspot":
		var req UpdateHotspotParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		hs, err := h.editor.UpdateHotspot(req.SceneID, req.HotspotID, editor.HotspotUpdate{
			Text:          req.Text,
			TargetSceneID: req.TargetID,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return hs, nil
	case "delete_hotspot":
		var req HotspotRefParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.editor.DeleteHotspot(req.SceneID, req.HotspotID); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "new_project":
		if err := h.editor.NewProject(ctx); err != nil {
			return nil, mapError(err)
		}
		return OKResponse{OK: true}, nil
	case "import_project":
		var req ImportProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		data := []byte(req.JSON)
		if req.Path != "" {
			var err error
			if data, err = os.ReadFile(req.Path); err != nil {
				return nil, invalidArgs("read %s: %v", req.Path, err)
			}
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, invalidArgs("path or json is required")
		}
		project, err := h.editor.ImportProject(ctx, data)
		if err != nil {
			return nil, mapError(err)
		}
		return ImportResponse{Scenes: len(project.Scenes), StartScene: project.StartScene}, nil
	case "export_project":
		var req ExportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		data, err := h.editor.ExportProject(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		if req.Path == "" {
			return json.RawMessage(data), nil
		}
		if err := os.WriteFile(req.Path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", req.Path, err)
		}
		return exportResponse(req.Path, int64(len(data))), nil
	case "export_bundle":
		var req ExportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Path == "" {
			return nil, invalidArgs("path is required")
		}
		return h.exportBundle(ctx, req.Path)
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

// exportBundle stages the zip next to path; a failed export leaves path untouched.
func (h *Handler) exportBundle(ctx context.Context, path string) (any, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*.zip")
	if err != nil {
		return nil, fmt.Errorf("create bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := h.editor.ExportBundle(ctx, tmp); err != nil {
		tmp.Close()
		return nil, mapError(err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return exportResponse(path, info.Size()), nil
}

func sceneSource(req AddSceneParams) (string, []byte, error) {
	switch {
	case req.Path != "":
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return "", nil, invalidArgs("read %s: %v", req.Path, err)
		}
		name := req.Name
		if name == "" {
			name = filepath.Base(req.Path)
		}
		return name, data, nil
	case req.Data != "":
		if strings.HasPrefix(req.Data, "data:") {
			data, _, err := media.DecodeDataURL(req.Data)
			if err != nil {
				return "", nil, invalidArgs("data: %v", err)
			}
			return req.Name, data, nil
		}
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return "", nil, invalidArgs("data is not base64: %v", err)
		}
		return req.Name, data, nil
	default:
		return "", nil, invalidArgs("path or data is required")
	}
}

func projectResponse(p *tour.Project) ProjectResponse {
	resp := ProjectResponse{Meta: p.Meta, StartScene: p.StartScene, Scenes: []tour.Scene{}}
	for _, id := range p.SceneIDs() {
		resp.Scenes = append(resp.Scenes, sceneView(*p.Scenes[id]))
	}
	return resp
}

// sceneView drops inline image payloads and keeps remote references.
func sceneView(s tour.Scene) tour.Scene {
	s.PanoramaData = ""
	if !tour.IsRemoteRef(s.Panorama) {
		s.Panorama = ""
	}
	if tour.IsDataURL(s.ThumbURL) {
		s.ThumbURL = ""
	}
	return s
}

func exportResponse(path string, size int64) ExportResponse {
	return ExportResponse{Path: path, Bytes: size, Size: humanize.Bytes(uint64(size))}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return invalidArgs("%v", err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
