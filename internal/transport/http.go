package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/panotour/internal/bundle"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/rpggio/panotour/internal/media"
)

// DefaultMaxUploadBytes caps scene uploads and project imports.
const DefaultMaxUploadBytes = 64 << 20

// Editor is the editing session exposed over HTTP.
type Editor interface {
	Project() *tour.Project
	Scenes(ctx context.Context) ([]tour.SceneSummary, error)
	CreateScene(ctx context.Context, fileName string, data []byte) (*tour.Scene, error)
	RenameScene(id, title string) error
	DeleteScene(ctx context.Context, id string) error
	SaveView(id string, pitch, yaw, hfov float64) error
	SetStartScene(id string) error
	AddLinkHotspot(sceneID, targetID string, pitch, yaw float64) (tour.Hotspot, error)
	AddInfoHotspot(sceneID, text string, pitch, yaw float64) (tour.Hotspot, error)
	MoveHotspot(sceneID, hotspotID string, pitch, yaw float64) error
	UpdateHotspot(sceneID, hotspotID string, update editor.HotspotUpdate) (tour.Hotspot, error)
	DeleteHotspot(sceneID, hotspotID string) error
	NewProject(ctx context.Context) error
	ImportProject(ctx context.Context, data []byte) (*tour.Project, error)
	ExportProject(ctx context.Context) ([]byte, error)
	ExportBundle(ctx context.Context, w io.Writer) error
	Resolve(ctx context.Context, id string) (*media.Handle, error)
	MediaRef(ref string) ([]byte, string, bool)
	Status() editor.Status
}

// Options configures the HTTP server.
type Options struct {
	// Token guards /api and /mcp when set.
	Token string
	// MCP is mounted at /mcp when set.
	MCP            http.Handler
	LibDir         string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	editor    Editor
	maxUpload int64
	logger    *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(ed Editor, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	srv := &Server{editor: ed, maxUpload: opts.MaxUploadBytes, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(opts.Logger))

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Token))
		r.Route("/api", func(r chi.Router) {
			r.Get("/status", srv.handleStatus)
			r.Get("/project", srv.handleGetProject)
			r.Post("/project/new", srv.handleNewProject)
			r.Post("/project/import", srv.handleImportProject)
			r.Get("/project/export", srv.handleExportProject)
			r.Get("/project/bundle", srv.handleExportBundle)

			r.Get("/scenes", srv.handleListScenes)
			r.Post("/scenes", srv.handleCreateScene)
			r.Get("/scenes/{id}", srv.handleGetScene)
			r.Patch("/scenes/{id}", srv.handleRenameScene)
			r.Delete("/scenes/{id}", srv.handleDeleteScene)
			r.Put("/scenes/{id}/view", srv.handleSaveView)
			r.Put("/start/{id}", srv.handleSetStart)

			r.Post("/scenes/{id}/hotspots", srv.handleAddHotspot)
			r.Patch("/scenes/{id}/hotspots/{hs}", srv.handleUpdateHotspot)
			r.Delete("/scenes/{id}/hotspots/{hs}", srv.handleDeleteHotspot)
		})
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
			r.Handle("/mcp/*", opts.MCP)
		}
	})

	r.Get("/media/{ref}", srv.handleMedia)

	r.Route("/player", func(r chi.Router) {
		r.Get("/tour.json", srv.handlePreviewTour)
		if opts.LibDir != "" {
			r.Handle("/libs/*", http.StripPrefix("/player/libs", http.FileServer(http.Dir(opts.LibDir))))
		}
		r.Handle("/*", http.StripPrefix("/player", http.FileServer(http.FS(bundle.Assets()))))
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Status())
}

func (s *Server) handleGetProject(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Project())
}

func (s *Server) handleNewProject(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.NewProject(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editor.Project())
}

func (s *Server) handleImportProject(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	project, err := s.editor.ImportProject(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleExportProject(w http.ResponseWriter, r *http.Request) {
	data, err := s.editor.ExportProject(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", attachment(s.editor.Project().Meta.Title, ".json"))
	_, _ = w.Write(data)
}

func (s *Server) handleExportBundle(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.editor.ExportBundle(r.Context(), &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment(s.editor.Project().Meta.Title, ".zip"))
	_, _ = w.Write(buf.Bytes())
}

func attachment(title, ext string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "tour"
	}
	return fmt.Sprintf("attachment; filename=%q", name+ext)
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.editor.Scenes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scene, ok := s.editor.Project().Scenes[id]
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", editor.ErrSceneNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", editor.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err))
		return
	}
	scene, err := s.editor.CreateScene(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scene)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameScene(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.editor.RenameScene(chi.URLParam(r, "id"), req.Title); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.DeleteScene(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type viewRequest struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Hfov  float64 `json:"hfov"`
}

func (s *Server) handleSaveView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.editor.SaveView(chi.URLParam(r, "id"), req.Pitch, req.Yaw, req.Hfov); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStart(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.SetStartScene(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type hotspotRequest struct {
	Type   tour.HotspotType `json:"type"`
	Target string           `json:"target,omitempty"`
	Text   string           `json:"text,omitempty"`
	Pitch  float64          `json:"pitch"`
	Yaw    float64          `json:"yaw"`
}

func (s *Server) handleAddHotspot(w http.ResponseWriter, r *http.Request) {
	var req hotspotRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}
	sceneID := chi.URLParam(r, "id")

	var (
		hs  tour.Hotspot
		err error
	)
	switch req.Type {
	case tour.HotspotScene:
		hs, err = s.editor.AddLinkHotspot(sceneID, req.Target, req.Pitch, req.Yaw)
	case tour.HotspotInfo:
		hs, err = s.editor.AddInfoHotspot(sceneID, req.Text, req.Pitch, req.Yaw)
	default:
		err = fmt.Errorf("%w: hotspot type must be %q or %q", editor.ErrInvalidInput, tour.HotspotScene, tour.HotspotInfo)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, hs)
}

type hotspotPatch struct {
	Pitch  *float64 `json:"pitch,omitempty"`
	Yaw    *float64 `json:"yaw,omitempty"`
	Text   *string  `json:"text,omitempty"`
	Target *string  `json:"target,omitempty"`
}

func (s *Server) handleUpdateHotspot(w http.ResponseWriter, r *http.Request) {
	var req hotspotPatch
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, err)
		return
	}
	sceneID, hotspotID := chi.URLParam(r, "id"), chi.URLParam(r, "hs")

	if (req.Pitch == nil) != (req.Yaw == nil) {
		writeError(w, fmt.Errorf("%w: pitch and yaw must be set together", editor.ErrInvalidInput))
		return
	}
	if req.Pitch != nil {
		if err := s.editor.MoveHotspot(sceneID, hotspotID, *req.Pitch, *req.Yaw); err != nil {
			writeError(w, err)
			return
		}
	}
	hs, err := s.editor.UpdateHotspot(sceneID, hotspotID, editor.HotspotUpdate{Text: req.Text, TargetSceneID: req.Target})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleDeleteHotspot(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.DeleteHotspot(chi.URLParam(r, "id"), chi.URLParam(r, "hs")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := s.editor.MediaRef(chi.URLParam(r, "ref"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}

// handlePreviewTour renders tour.json for the live project, pointing
// scenes at their media refs. Scenes without an image are left out.
func (s *Server) handlePreviewTour(w http.ResponseWriter, r *http.Request) {
	p := s.editor.Project()
	for _, id := range p.SceneIDs() {
		h, err := s.editor.Resolve(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if h == nil {
			delete(p.Scenes, id)
			continue
		}
		scene := p.Scenes[id]
		scene.Type = "equirectangular"
		scene.PanoramaData = ""
		scene.Panorama = h.Ref
		if h.Local() {
			scene.Panorama = "../media/" + url.PathEscape(h.Ref)
		}
		scene.ThumbURL = h.Thumbnail
	}
	p.RepairStartScene()
	if p.StartScene == "" {
		if ids := p.SceneIDs(); len(ids) > 0 {
			p.StartScene = ids[0]
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing file field", editor.ErrInvalidInput)
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", editor.ErrInvalidInput, err)
	}
	return data, nil
}
