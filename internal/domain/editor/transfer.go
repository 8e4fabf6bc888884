package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rpggio/panotour/internal/bundle"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/rpggio/panotour/internal/media"
)

// NewProject discards the current project, its images and media handles.
func (s *Session) NewProject(ctx context.Context) error {
	s.replace(ctx, tour.NewProject(s.clock.Now()))
	s.saver.Schedule()
	s.logger.Info("new project started")
	return nil
}

// ImportProject replaces the current project with an exported project
// file. Embedded images are migrated into the blob store.
func (s *Session) ImportProject(ctx context.Context, data []byte) (*tour.Project, error) {
	project, err := tour.ParseImport(data, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.replace(ctx, project)
	ids := project.SceneIDs()
	if err := s.resolveAll(ctx, ids); err != nil {
		return nil, err
	}
	s.saver.Schedule()
	s.logger.Info("project imported", "title", project.Meta.Title, "scenes", len(ids))
	return s.Project(), nil
}

// replace swaps in project and frees everything held for the old one.
func (s *Session) replace(ctx context.Context, project *tour.Project) {
	s.mu.Lock()
	old := s.project.SceneIDs()
	s.project = project
	s.inline = make(map[string]bool)
	memoryOnly := s.memoryOnly
	if memoryOnly {
		for id, scene := range project.Scenes {
			if scene.EmbeddedData() != "" {
				s.inline[id] = true
			}
		}
	}
	s.mu.Unlock()

	s.resolver.ReleaseAll()
	if memoryOnly {
		return
	}
	for _, id := range old {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("could not delete image of replaced project", "scene", id, "error", err)
		}
	}
}

// ExportProject renders the project as a standalone JSON document with
// every image embedded. Scenes whose only image is a remote reference
// keep that reference. A scene with no image aborts the export.
func (s *Session) ExportProject(ctx context.Context) ([]byte, error) {
	p := s.Project()
	for _, id := range p.SceneIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scene := tour.NormalizeScene(id, p.Scenes[id])
		scene.Type = ""
		data, contentType, err := s.imageFor(ctx, scene)
		if err != nil {
			return nil, err
		}
		if data != nil {
			ref := media.EncodeDataURL(data, contentType)
			scene.Panorama = ref
			scene.PanoramaData = ref
			scene.ThumbURL = s.thumbnail(id, data)
		} else {
			scene.PanoramaData = ""
		}
		p.Scenes[id] = scene
	}

	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding project: %w", err)
	}
	return out, nil
}

// ExportBundle writes a playable zip bundle of the project to w.
func (s *Session) ExportBundle(ctx context.Context, w io.Writer) error {
	p := s.Project()
	images := make(map[string]bundle.Image, len(p.Scenes))
	for _, id := range p.SceneIDs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		scene := tour.NormalizeScene(id, p.Scenes[id])
		p.Scenes[id] = scene
		data, contentType, err := s.imageFor(ctx, scene)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		images[id] = bundle.Image{Data: data, ContentType: contentType}
		scene.ThumbURL = s.thumbnail(id, data)
	}

	if err := bundle.Write(w, p, images, bundle.Options{LibDir: s.libDir, Logger: s.logger}); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}
	s.logger.Info("bundle exported", "scenes", len(p.Scenes), "images", len(images))
	return nil
}

// imageFor returns the image bytes of scene. It returns nil data for a
// scene that only has a remote reference and ExportIncompleteError for a
// scene with no image at all.
func (s *Session) imageFor(ctx context.Context, scene *tour.Scene) ([]byte, string, error) {
	data, contentType, err := s.resolver.ImageData(ctx, scene.ID)
	switch {
	case err == nil:
		return data, contentType, nil
	case errors.Is(err, media.ErrMissingMedia) && tour.IsRemoteRef(scene.Panorama):
		return nil, "", nil
	default:
		s.logger.Error("scene image unavailable for export", "scene", scene.ID, "error", err)
		return nil, "", &ExportIncompleteError{SceneID: scene.ID, Title: scene.Title}
	}
}

func (s *Session) thumbnail(id string, data []byte) string {
	if h, ok := s.resolver.Cached(id); ok && h.Thumbnail != "" {
		return h.Thumbnail
	}
	return media.Thumbnail(data)
}
