package tour

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/jsonc"
)

// Reconcile rebuilds a project from a persisted snapshot. Persisted
// values win field by field; anything missing or of the wrong type
// falls back to the defaults of NewProject(now). A snapshot that does
// not parse as a JSON object yields the default empty project.
func Reconcile(data []byte, now time.Time) *Project {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewProject(now)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return NewProject(now)
	}
	return fromObject(obj, now)
}

// ParseImport decodes an explicitly imported project file. Unlike
// Reconcile it reports unparseable input as ErrMalformedPersisted.
// Comments and trailing commas are tolerated.
func ParseImport(data []byte, now time.Time) (*Project, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedPersisted)
	}
	var raw any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPersisted, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedPersisted)
	}
	return fromObject(obj, now), nil
}

func fromObject(obj map[string]any, now time.Time) *Project {
	proj := NewProject(now)

	if meta, ok := obj["meta"].(map[string]any); ok {
		if v := stringField(meta, "title"); v != "" {
			proj.Meta.Title = v
		}
		if v := stringField(meta, "author"); v != "" {
			proj.Meta.Author = v
		}
		if t, ok := timeField(meta, "created"); ok {
			proj.Meta.Created = t
		}
		if t, ok := timeField(meta, "updated"); ok {
			proj.Meta.Updated = t
		}
	}

	if scenes, ok := obj["scenes"].(map[string]any); ok {
		for id, v := range scenes {
			if id == "" {
				continue
			}
			sceneObj, _ := v.(map[string]any)
			proj.Scenes[id] = NormalizeScene(id, sceneFromObject(sceneObj))
		}
	}

	proj.StartScene = stringField(obj, "startScene")
	proj.RepairStartScene()
	return proj
}

func sceneFromObject(obj map[string]any) *Scene {
	scene := &Scene{
		Yaw:   DefaultYaw,
		Pitch: DefaultPitch,
		Hfov:  DefaultHfov,
	}
	if obj == nil {
		return scene
	}
	scene.Title = stringField(obj, "title")
	if v, ok := numberField(obj, "yaw"); ok {
		scene.Yaw = v
	}
	if v, ok := numberField(obj, "pitch"); ok {
		scene.Pitch = v
	}
	if v, ok := numberField(obj, "hfov"); ok {
		scene.Hfov = v
	}
	scene.Panorama = stringField(obj, "panorama")
	scene.PanoramaData = stringField(obj, "panoramaData")
	scene.ThumbURL = stringField(obj, "thumbUrl")

	if list, ok := obj["hotSpots"].([]any); ok {
		scene.HotSpots = make([]Hotspot, 0, len(list))
		for _, item := range list {
			hsObj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			scene.HotSpots = append(scene.HotSpots, hotspotFromObject(hsObj))
		}
	}
	return scene
}

func hotspotFromObject(obj map[string]any) Hotspot {
	hs := Hotspot{
		ID:       stringField(obj, "id"),
		Type:     HotspotType(stringField(obj, "type")),
		SceneID:  stringField(obj, "sceneId"),
		Text:     stringField(obj, "text"),
		CSSClass: stringField(obj, "cssClass"),
	}
	if v, ok := numberField(obj, "pitch"); ok {
		hs.Pitch = v
	}
	if v, ok := numberField(obj, "yaw"); ok {
		hs.Yaw = v
	}
	return hs
}

func stringField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}

func numberField(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	return v, ok
}

func timeField(obj map[string]any, key string) (time.Time, bool) {
	s, ok := obj[key].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
