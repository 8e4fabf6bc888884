package tour

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotOptions controls what a persisted snapshot carries.
type SnapshotOptions struct {
	// KeepEmbedded retains inline image data and thumbnails. Set when no
	// blob store holds the images.
	KeepEmbedded bool
	// Inline lists scenes whose embedded data is kept regardless, because
	// their image never reached the blob store.
	Inline map[string]bool
}

// Snapshot stamps the project's updated time and serializes a
// normalized copy for the autosave slot. Transient local references are
// never written; remote panorama references always are.
func Snapshot(p *Project, now time.Time, opts SnapshotOptions) ([]byte, error) {
	p.Meta.Updated = now.UTC()

	out := &Project{
		Meta:       p.Meta,
		StartScene: p.StartScene,
		Scenes:     make(map[string]*Scene, len(p.Scenes)),
	}
	for id, scene := range p.Scenes {
		norm := NormalizeScene(id, scene)
		norm.Type = ""
		if !opts.KeepEmbedded && !opts.Inline[id] {
			norm.PanoramaData = ""
			norm.ThumbURL = ""
			if !IsRemoteRef(norm.Panorama) {
				norm.Panorama = ""
			}
		} else if !IsRemoteRef(norm.Panorama) && !IsDataURL(norm.Panorama) {
			norm.Panorama = ""
		}
		out.Scenes[id] = norm
	}
	out.RepairStartScene()

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}
