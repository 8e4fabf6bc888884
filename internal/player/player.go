// Package player serves an exported tour bundle read-only.
package player

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/zip"
	"github.com/rpggio/panotour/internal/bundle"
	"github.com/rpggio/panotour/internal/domain/tour"
)

// ErrEmptyTour indicates a bundle whose tour has no scenes.
var ErrEmptyTour = errors.New("tour has no scenes")

// Player is a loaded bundle.
type Player struct {
	fsys   fs.FS
	closer io.Closer
	tour   *tour.Project
}

// Open loads a bundle from a directory or a .zip archive.
func Open(path string) (*Player, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	if info.IsDir() {
		return Load(os.DirFS(path), nil)
	}
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return nil, fmt.Errorf("opening bundle %s: expected a directory or .zip file", path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle archive: %w", err)
	}
	p, err := Load(zr, zr)
	if err != nil {
		zr.Close()
		return nil, err
	}
	return p, nil
}

// Load reads the tour from fsys. closer, when set, is closed by Close.
func Load(fsys fs.FS, closer io.Closer) (*Player, error) {
	data, err := fs.ReadFile(fsys, bundle.TourFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", bundle.TourFile, err)
	}
	t, err := tour.ParseImport(data, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", bundle.TourFile, err)
	}
	if len(t.Scenes) == 0 {
		return nil, ErrEmptyTour
	}
	if t.StartScene == "" {
		t.StartScene = t.SceneIDs()[0]
	}
	return &Player{fsys: fsys, closer: closer, tour: t}, nil
}

// Tour returns a copy of the loaded tour.
func (p *Player) Tour() *tour.Project {
	return p.tour.Clone()
}

// StartScene is the scene the player opens with.
func (p *Player) StartScene() string {
	return p.tour.StartScene
}

// Handler serves the bundle files. Only GET and HEAD are routed.
func (p *Player) Handler() http.Handler {
	r := chi.NewRouter()
	files := http.FileServer(http.FS(p.fsys))
	r.Get("/*", files.ServeHTTP)
	r.Head("/*", files.ServeHTTP)
	return r
}

// Close releases the underlying archive, if any.
func (p *Player) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
