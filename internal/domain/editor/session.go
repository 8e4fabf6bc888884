// Package editor owns the tour being edited: its scenes, their images and
// the autosave that keeps both across restarts.
package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/panotour/internal/autosave"
	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/clock"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/rpggio/panotour/internal/media"
)

// Session is a single editing session. Storage and media calls are never
// made while mu is held.
type Session struct {
	store    BlobStore
	resolver *media.Resolver
	saver    *autosave.Saver
	clock    clock.Clock
	logger   *slog.Logger
	libDir   string

	mu         sync.Mutex
	project    *tour.Project
	memoryOnly bool
	// inline marks scenes whose image only lives in embedded data.
	inline map[string]bool
}

// NewSession creates a session with an empty project. Call Restore to
// load the last autosaved state.
func NewSession(store BlobStore, slot autosave.Slot, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if store == nil {
		store = blobstore.Unavailable("no blob store configured", opts.Logger)
	}

	s := &Session{
		store:   store,
		clock:   opts.Clock,
		logger:  opts.Logger,
		libDir:  opts.BundleLibDir,
		project: tour.NewProject(opts.Clock.Now()),
		inline:  make(map[string]bool),
	}
	s.resolver = media.NewResolver(store, s, media.Options{
		Registry:    opts.Registry,
		Logger:      opts.Logger,
		Unpersisted: s.keepInline,
	})
	s.saver = autosave.NewSaver(slot, s, autosave.Options{
		Key:    opts.AutosaveKey,
		Delay:  opts.AutosaveDelay,
		Clock:  opts.Clock,
		Logger: opts.Logger,
	})
	return s
}

// Restore replaces the current project with the autosaved one and
// resolves media for every scene. A missing or unreadable snapshot
// yields an empty project.
func (s *Session) Restore(ctx context.Context) error {
	memoryOnly := !s.store.Available(ctx)
	if memoryOnly {
		s.logger.Warn("blob store unavailable, images will be kept inline")
	}

	now := s.clock.Now()
	project := tour.NewProject(now)
	data, ok, err := s.saver.Load(ctx)
	switch {
	case err != nil:
		s.logger.Warn("could not read autosaved project, starting empty", "error", err)
	case ok:
		project = tour.Reconcile(data, now)
	}

	s.mu.Lock()
	s.project = project
	s.memoryOnly = memoryOnly
	s.inline = make(map[string]bool)
	ids := project.SceneIDs()
	s.mu.Unlock()

	s.resolver.ReleaseAll()
	s.logger.Info("project restored", "title", project.Meta.Title, "scenes", len(ids))
	return s.resolveAll(ctx, ids)
}

func (s *Session) resolveAll(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.resolver.Resolve(ctx, id); err != nil {
			return fmt.Errorf("resolving scene %s: %w", id, err)
		}
	}
	return nil
}

// keepInline marks a scene whose embedded image failed to reach the blob
// store so autosave keeps that data.
func (s *Session) keepInline(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scene, ok := s.project.Scenes[id]; ok && scene.EmbeddedData() != "" {
		s.inline[id] = true
	}
}

// Snapshot serializes the project for the autosave slot.
func (s *Session) Snapshot(now time.Time) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inline := make(map[string]bool, len(s.inline))
	for id := range s.inline {
		inline[id] = true
	}
	return tour.Snapshot(s.project, now, tour.SnapshotOptions{
		KeepEmbedded: s.memoryOnly,
		Inline:       inline,
	})
}

// Scene returns a copy of the scene stored under id.
func (s *Session) Scene(id string) (*tour.Scene, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scene, ok := s.project.Scenes[id]
	if !ok {
		return nil, false
	}
	return scene.Clone(), true
}

// Project returns a deep copy of the current project.
func (s *Session) Project() *tour.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Clone()
}

// MemoryOnly reports whether images are kept inline for lack of a blob store.
func (s *Session) MemoryOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryOnly
}

// AutosaveError returns the outcome of the most recent autosave write.
func (s *Session) AutosaveError() error {
	return s.saver.LastError()
}

// Status describes where the session keeps its data.
type Status struct {
	MemoryOnly    bool   `json:"memoryOnly"`
	SavePending   bool   `json:"savePending"`
	LastSaveError string `json:"lastSaveError,omitempty"`
}

// Status reports the storage mode and autosave state.
func (s *Session) Status() Status {
	st := Status{
		MemoryOnly:  s.MemoryOnly(),
		SavePending: s.saver.Pending(),
	}
	if err := s.AutosaveError(); err != nil {
		st.LastSaveError = err.Error()
	}
	return st
}

// mutate applies fn to the project under the session lock and schedules
// an autosave when it succeeds.
func (s *Session) mutate(fn func(p *tour.Project) error) error {
	s.mu.Lock()
	err := fn(s.project)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.saver.Schedule()
	return nil
}

func sceneIn(p *tour.Project, id string) (*tour.Scene, error) {
	scene, ok := p.Scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	return scene, nil
}

// CreateScene adds a scene for an uploaded image. The scene id derives
// from fileName and is made unique within the project.
func (s *Session) CreateScene(ctx context.Context, fileName string, data []byte) (*tour.Scene, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrInvalidInput, contentType)
	}

	s.mu.Lock()
	p := s.project
	id := tour.UniqueSceneID(tour.SceneBaseName(fileName), func(candidate string) bool {
		_, taken := p.Scenes[candidate]
		return taken
	})
	scene := &tour.Scene{
		ID:       id,
		Title:    id,
		Yaw:      tour.DefaultYaw,
		Pitch:    tour.DefaultPitch,
		Hfov:     tour.DefaultHfov,
		HotSpots: []tour.Hotspot{},
	}
	memoryOnly := s.memoryOnly
	if memoryOnly {
		scene.PanoramaData = media.EncodeDataURL(data, contentType)
	}
	p.Scenes[id] = scene
	if p.StartScene == "" {
		p.StartScene = id
	}
	out := scene.Clone()
	s.mu.Unlock()

	if !memoryOnly {
		if err := s.store.Put(ctx, id, data); err != nil {
			s.logger.Warn("could not store scene image, keeping it inline", "scene", id, "error", err)
			s.mu.Lock()
			if current, ok := s.project.Scenes[id]; ok {
				current.PanoramaData = media.EncodeDataURL(data, contentType)
				s.inline[id] = true
			}
			s.mu.Unlock()
		}
	}

	s.resolver.Set(id, data, contentType)
	if _, ok := s.Scene(id); !ok {
		s.resolver.Release(id)
		if !memoryOnly {
			if err := s.store.Delete(ctx, id); err != nil {
				s.logger.Warn("could not remove image of deleted scene", "scene", id, "error", err)
			}
		}
	}
	s.saver.Schedule()
	s.logger.Info("scene created", "scene", id, "content_type", contentType, "bytes", len(data))
	return out, nil
}

// DeleteScene removes a scene together with its image, its media handle
// and every link hotspot pointing at it.
func (s *Session) DeleteScene(ctx context.Context, id string) error {
	s.mu.Lock()
	p := s.project
	if _, err := sceneIn(p, id); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(p.Scenes, id)
	delete(s.inline, id)
	for _, scene := range p.Scenes {
		kept := scene.HotSpots[:0]
		for _, h := range scene.HotSpots {
			if h.IsLink() && h.SceneID == id {
				continue
			}
			kept = append(kept, h)
		}
		scene.HotSpots = kept
	}
	if p.StartScene == id {
		p.RepairStartScene()
	}
	memoryOnly := s.memoryOnly
	s.mu.Unlock()

	s.resolver.Release(id)
	if !memoryOnly {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("could not delete scene image", "scene", id, "error", err)
		}
	}
	s.saver.Schedule()
	s.logger.Info("scene deleted", "scene", id)
	return nil
}

// RenameScene changes a scene title. Link hotspots still labelled with the
// old title follow the rename.
func (s *Session) RenameScene(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	return s.mutate(func(p *tour.Project) error {
		scene, err := sceneIn(p, id)
		if err != nil {
			return err
		}
		old := scene.Title
		scene.Title = title
		for _, other := range p.Scenes {
			for i := range other.HotSpots {
				h := &other.HotSpots[i]
				if h.IsLink() && h.SceneID == id && h.Text == old {
					h.Text = title
				}
			}
		}
		return nil
	})
}

// SetStartScene marks the scene the tour opens with.
func (s *Session) SetStartScene(id string) error {
	return s.mutate(func(p *tour.Project) error {
		if _, err := sceneIn(p, id); err != nil {
			return err
		}
		p.StartScene = id
		return nil
	})
}

// SaveView stores the initial orientation of a scene.
func (s *Session) SaveView(id string, pitch, yaw, hfov float64) error {
	if err := validateOrientation(pitch, yaw); err != nil {
		return err
	}
	if !finite(hfov) || hfov <= 0 || hfov >= 360 {
		return fmt.Errorf("%w: hfov must be between 0 and 360", ErrInvalidInput)
	}
	return s.mutate(func(p *tour.Project) error {
		scene, err := sceneIn(p, id)
		if err != nil {
			return err
		}
		scene.Pitch = pitch
		scene.Yaw = yaw
		scene.Hfov = hfov
		return nil
	})
}

func validateOrientation(pitch, yaw float64) error {
	if !finite(pitch) || !finite(yaw) {
		return fmt.Errorf("%w: orientation must be finite", ErrInvalidInput)
	}
	if pitch < -90 || pitch > 90 {
		return fmt.Errorf("%w: pitch must be between -90 and 90", ErrInvalidInput)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Resolve returns the media handle for a scene, or nil when it has no image.
func (s *Session) Resolve(ctx context.Context, id string) (*media.Handle, error) {
	return s.resolver.Resolve(ctx, id)
}

// Scenes lists scene summaries in id order, resolving media as needed.
func (s *Session) Scenes(ctx context.Context) ([]tour.SceneSummary, error) {
	p := s.Project()
	ids := p.SceneIDs()
	out := make([]tour.SceneSummary, 0, len(ids))
	for _, id := range ids {
		scene := p.Scenes[id]
		summary := tour.SceneSummary{
			ID:       id,
			Title:    scene.Title,
			Yaw:      scene.Yaw,
			Pitch:    scene.Pitch,
			Hfov:     scene.Hfov,
			Hotspots: len(scene.HotSpots),
			Start:    p.StartScene == id,
		}
		h, err := s.resolver.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if h != nil {
			summary.MediaRef = h.Ref
			summary.Thumbnail = h.Thumbnail
		}
		out = append(out, summary)
	}
	return out, nil
}

// MediaRef returns the bytes behind a local media reference.
func (s *Session) MediaRef(ref string) ([]byte, string, bool) {
	return s.resolver.Registry().Lookup(ref)
}

// Close writes any pending autosave and releases every media handle.
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.Flush(ctx)
	s.saver.Stop()
	s.resolver.ReleaseAll()
	if err != nil {
		return fmt.Errorf("final autosave: %w", err)
	}
	return nil
}
