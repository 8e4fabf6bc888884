package mcp

import "github.com/rpggio/panotour/internal/domain/tour"

type AddSceneParams struct {
	// Name is used for the room title when Path is not set.
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
	// Data is base64 or a data: URL.
	Data string `json:"data,omitempty"`
}

type SceneIDParams struct {
	SceneID string `json:"scene_id"`
}

type RenameSceneParams struct {
	SceneID string `json:"scene_id"`
	Title   string `json:"title"`
}

type SaveViewParams struct {
	SceneID string  `json:"scene_id"`
	Pitch   float64 `json:"pitch"`
	Yaw     float64 `json:"yaw"`
	Hfov    float64 `json:"hfov"`
}

type AddLinkHotspotParams struct {
	SceneID  string  `json:"scene_id"`
	TargetID string  `json:"target_id"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
}

type AddInfoHotspotParams struct {
	SceneID string  `json:"scene_id"`
	Text    string  `json:"text"`
	Pitch   float64 `json:"pitch"`
	Yaw     float64 `json:"yaw"`
}

type MoveHotspotParams struct {
	SceneID   string  `json:"scene_id"`
	HotspotID string  `json:"hotspot_id"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
}

type UpdateHotspotParams struct {
	SceneID   string  `json:"scene_id"`
	HotspotID string  `json:"hotspot_id"`
	Text      *string `json:"text,omitempty"`
	TargetID  *string `json:"target_id,omitempty"`
}

type HotspotRefParams struct {
	SceneID   string `json:"scene_id"`
	HotspotID string `json:"hotspot_id"`
}

type ImportProjectParams struct {
	Path string `json:"path,omitempty"`
	JSON string `json:"json,omitempty"`
}

type ExportParams struct {
	Path string `json:"path,omitempty"`
}

type ListScenesResponse struct {
	StartScene string              `json:"start_scene,omitempty"`
	Scenes     []tour.SceneSummary `json:"scenes"`
}

// ProjectResponse is the project without embedded image payloads.
type ProjectResponse struct {
	Meta       tour.Meta    `json:"meta"`
	StartScene string       `json:"start_scene,omitempty"`
	Scenes     []tour.Scene `json:"scenes"`
}

type ImportResponse struct {
	Scenes     int    `json:"scenes"`
	StartScene string `json:"start_scene,omitempty"`
}

type ExportResponse struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
	Size  string `json:"size"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
