package tour

import (
	"math"
	"sort"
	"strings"
)

// NormalizeScene returns a well-formed copy of scene stored under id.
// Orientation values that are not finite fall back to defaults, a nil
// hotspot list becomes empty, and hotspots without an id receive one.
func NormalizeScene(id string, scene *Scene) *Scene {
	out := &Scene{}
	if scene != nil {
		out = scene.Clone()
	}
	out.ID = id
	if strings.TrimSpace(out.Title) == "" {
		out.Title = id
	}
	out.Yaw = finiteOr(out.Yaw, DefaultYaw)
	out.Pitch = finiteOr(out.Pitch, DefaultPitch)
	out.Hfov = finiteOr(out.Hfov, DefaultHfov)
	if out.HotSpots == nil {
		out.HotSpots = []Hotspot{}
	}
	for i := range out.HotSpots {
		out.HotSpots[i] = normalizeHotspot(out.HotSpots[i])
	}
	return out
}

func normalizeHotspot(h Hotspot) Hotspot {
	if h.ID == "" {
		h.ID = NewHotspotID()
	}
	h.Pitch = finiteOr(h.Pitch, 0)
	h.Yaw = finiteOr(h.Yaw, 0)
	switch h.Type {
	case HotspotScene, HotspotInfo:
	default:
		if h.SceneID != "" {
			h.Type = HotspotScene
		} else {
			h.Type = HotspotInfo
		}
	}
	return h
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// SceneIDs returns the project's scene ids in sorted order.
func (p *Project) SceneIDs() []string {
	ids := make([]string, 0, len(p.Scenes))
	for id := range p.Scenes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RepairStartScene clears or replaces a start scene that no longer exists.
func (p *Project) RepairStartScene() {
	if p.StartScene == "" {
		return
	}
	if _, ok := p.Scenes[p.StartScene]; ok {
		return
	}
	p.StartScene = ""
	if ids := p.SceneIDs(); len(ids) > 0 {
		p.StartScene = ids[0]
	}
}

// IsDataURL reports whether ref is an embedded data reference.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// IsRemoteRef reports whether ref points at an image outside the project:
// anything non-empty that is neither embedded data nor a transient local ref.
func IsRemoteRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref != "" && !IsDataURL(ref) && !strings.HasPrefix(ref, "blob:")
}

// EmbeddedData returns the scene's embedded image data, checking the
// legacy panoramaData field before panorama.
func (s *Scene) EmbeddedData() string {
	if IsDataURL(s.PanoramaData) {
		return s.PanoramaData
	}
	if IsDataURL(s.Panorama) {
		return s.Panorama
	}
	return ""
}
