package editor

import (
	"fmt"
	"strings"

	"github.com/rpggio/panotour/internal/domain/tour"
)

// CSS classes the viewer styles hotspots with.
const (
	LinkHotspotClass = "link-hotspot"
	InfoHotspotClass = "info-hotspot"
)

// AddLinkHotspot places a hotspot on sceneID that navigates to targetID.
func (s *Session) AddLinkHotspot(sceneID, targetID string, pitch, yaw float64) (tour.Hotspot, error) {
	if err := validateOrientation(pitch, yaw); err != nil {
		return tour.Hotspot{}, err
	}
	var out tour.Hotspot
	err := s.mutate(func(p *tour.Project) error {
		scene, target, err := linkEnds(p, sceneID, targetID)
		if err != nil {
			return err
		}
		out = tour.Hotspot{
			ID:       tour.NewHotspotID(),
			Pitch:    pitch,
			Yaw:      yaw,
			Type:     tour.HotspotScene,
			SceneID:  targetID,
			Text:     target.Title,
			CSSClass: LinkHotspotClass,
		}
		scene.HotSpots = append(scene.HotSpots, out)
		return nil
	})
	return out, err
}

func linkEnds(p *tour.Project, sceneID, targetID string) (*tour.Scene, *tour.Scene, error) {
	scene, err := sceneIn(p, sceneID)
	if err != nil {
		return nil, nil, err
	}
	if targetID == sceneID {
		return nil, nil, fmt.Errorf("%w: a scene cannot link to itself", ErrInvalidInput)
	}
	target, err := sceneIn(p, targetID)
	if err != nil {
		return nil, nil, err
	}
	return scene, target, nil
}

// AddInfoHotspot places an informational hotspot on sceneID.
func (s *Session) AddInfoHotspot(sceneID, text string, pitch, yaw float64) (tour.Hotspot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tour.Hotspot{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if err := validateOrientation(pitch, yaw); err != nil {
		return tour.Hotspot{}, err
	}
	var out tour.Hotspot
	err := s.mutate(func(p *tour.Project) error {
		scene, err := sceneIn(p, sceneID)
		if err != nil {
			return err
		}
		out = tour.Hotspot{
			ID:       tour.NewHotspotID(),
			Pitch:    pitch,
			Yaw:      yaw,
			Type:     tour.HotspotInfo,
			Text:     text,
			CSSClass: InfoHotspotClass,
		}
		scene.HotSpots = append(scene.HotSpots, out)
		return nil
	})
	return out, err
}

// MoveHotspot changes where a hotspot sits on its scene.
func (s *Session) MoveHotspot(sceneID, hotspotID string, pitch, yaw float64) error {
	if err := validateOrientation(pitch, yaw); err != nil {
		return err
	}
	return s.mutate(func(p *tour.Project) error {
		h, err := hotspotIn(p, sceneID, hotspotID)
		if err != nil {
			return err
		}
		h.Pitch = pitch
		h.Yaw = yaw
		return nil
	})
}

// UpdateHotspot edits a hotspot's label or link target. Retargeting a link
// without a new label relabels it with the target's title.
func (s *Session) UpdateHotspot(sceneID, hotspotID string, update HotspotUpdate) (tour.Hotspot, error) {
	var out tour.Hotspot
	err := s.mutate(func(p *tour.Project) error {
		h, err := hotspotIn(p, sceneID, hotspotID)
		if err != nil {
			return err
		}
		next := *h
		if update.TargetSceneID != nil {
			if !h.IsLink() {
				return fmt.Errorf("%w: info hotspots have no target", ErrInvalidInput)
			}
			_, target, err := linkEnds(p, sceneID, *update.TargetSceneID)
			if err != nil {
				return err
			}
			next.SceneID = target.ID
			next.Text = target.Title
		}
		if update.Text != nil {
			text := strings.TrimSpace(*update.Text)
			if text == "" && !next.IsLink() {
				return fmt.Errorf("%w: text is required", ErrInvalidInput)
			}
			next.Text = text
		}
		*h = next
		out = next
		return nil
	})
	return out, err
}

// DeleteHotspot removes a hotspot from its scene.
func (s *Session) DeleteHotspot(sceneID, hotspotID string) error {
	return s.mutate(func(p *tour.Project) error {
		scene, err := sceneIn(p, sceneID)
		if err != nil {
			return err
		}
		i := scene.HotspotIndex(hotspotID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrHotspotNotFound, hotspotID)
		}
		scene.HotSpots = append(scene.HotSpots[:i], scene.HotSpots[i+1:]...)
		return nil
	})
}

func hotspotIn(p *tour.Project, sceneID, hotspotID string) (*tour.Hotspot, error) {
	scene, err := sceneIn(p, sceneID)
	if err != nil {
		return nil, err
	}
	i := scene.HotspotIndex(hotspotID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrHotspotNotFound, hotspotID)
	}
	return &scene.HotSpots[i], nil
}
