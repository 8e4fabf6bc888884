package tour

import "time"

// Orientation defaults applied to scenes missing a usable value.
const (
	DefaultYaw   = 0.0
	DefaultPitch = 0.0
	DefaultHfov  = 110.0
)

// Default metadata for a fresh project.
const (
	DefaultTitle  = "New tour"
	DefaultAuthor = "Unknown author"
)

// HotspotType is the viewer-level hotspot kind.
type HotspotType string

const (
	// HotspotScene links to another scene.
	HotspotScene HotspotType = "scene"
	// HotspotInfo displays informational text.
	HotspotInfo HotspotType = "info"
)

// Meta holds tour-level metadata.
type Meta struct {
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Project is the editable tour document.
type Project struct {
	Meta       Meta              `json:"meta"`
	StartScene string            `json:"startScene,omitempty"`
	Scenes     map[string]*Scene `json:"scenes"`
}

// Scene is one panorama plus its navigation metadata.
type Scene struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Yaw      float64   `json:"yaw"`
	Pitch    float64   `json:"pitch"`
	Hfov     float64   `json:"hfov"`
	HotSpots []Hotspot `json:"hotSpots"`
	// Type is always "equirectangular" on export; ignored on input.
	Type string `json:"type,omitempty"`
	// Panorama is either an embedded data URL or a remote reference.
	Panorama string `json:"panorama,omitempty"`
	// PanoramaData is the legacy embedded-data field, checked first.
	PanoramaData string `json:"panoramaData,omitempty"`
	ThumbURL     string `json:"thumbUrl,omitempty"`
}

// Hotspot is an interactive marker placed on a scene.
type Hotspot struct {
	ID       string      `json:"id"`
	Pitch    float64     `json:"pitch"`
	Yaw      float64     `json:"yaw"`
	Type     HotspotType `json:"type"`
	SceneID  string      `json:"sceneId,omitempty"`
	Text     string      `json:"text,omitempty"`
	CSSClass string      `json:"cssClass,omitempty"`
}

// IsLink reports whether the hotspot navigates to another scene.
func (h Hotspot) IsLink() bool {
	return h.Type == HotspotScene
}

// NewProject returns an empty project stamped with now.
func NewProject(now time.Time) *Project {
	now = now.UTC()
	return &Project{
		Meta: Meta{
			Title:   DefaultTitle,
			Author:  DefaultAuthor,
			Created: now,
			Updated: now,
		},
		Scenes: map[string]*Scene{},
	}
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := &Project{
		Meta:       p.Meta,
		StartScene: p.StartScene,
		Scenes:     make(map[string]*Scene, len(p.Scenes)),
	}
	for id, scene := range p.Scenes {
		out.Scenes[id] = scene.Clone()
	}
	return out
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := *s
	out.HotSpots = append([]Hotspot(nil), s.HotSpots...)
	if out.HotSpots == nil {
		out.HotSpots = []Hotspot{}
	}
	return &out
}

// HotspotIndex returns the position of the hotspot with id, or -1.
func (s *Scene) HotspotIndex(id string) int {
	for i := range s.HotSpots {
		if s.HotSpots[i].ID == id {
			return i
		}
	}
	return -1
}

// SceneSummary is a lightweight scene listing entry.
type SceneSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Yaw       float64 `json:"yaw"`
	Pitch     float64 `json:"pitch"`
	Hfov      float64 `json:"hfov"`
	Hotspots  int     `json:"hotspots"`
	Start     bool    `json:"start"`
	MediaRef  string  `json:"media_ref,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
}
