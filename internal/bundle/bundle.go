// Package bundle packages a tour as a self-contained, read-only player:
// viewer page, viewer library, tour.json and one image per scene.
package bundle

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/rpggio/panotour/internal/domain/tour"
)

// TourFile is the tour description inside a bundle.
const TourFile = "tour.json"

// ImageDir holds one image per scene.
const ImageDir = "images"

// LibDir holds the third-party viewer library.
const LibDir = "libs"

// LibFiles are copied from Options.LibDir when present.
var LibFiles = []string{"pannellum.css", "pannellum.js"}

// ErrMissingImage indicates a scene with neither image bytes nor a
// remote reference.
var ErrMissingImage = errors.New("scene image missing")

//go:embed assets
var assets embed.FS

// Assets returns the embedded viewer page, styles and script.
func Assets() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Image is the raw image of one scene.
type Image struct {
	Data        []byte
	ContentType string
}

// Options configures Write.
type Options struct {
	// LibDir is the directory containing the viewer library files.
	LibDir   string
	Modified time.Time
	Logger   *slog.Logger
}

// Write streams a zip bundle for project to w. Scenes present in images
// are written under images/; scenes absent from it must carry a remote
// panorama reference.
func Write(w io.Writer, project *tour.Project, images map[string]Image, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Modified.IsZero() {
		opts.Modified = project.Meta.Updated
	}
	if opts.Modified.IsZero() {
		opts.Modified = time.Now()
	}

	paths := ImagePaths(project, images)
	tourJSON, err := manifest(project, paths)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	add := func(name string, data []byte, method uint16) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: opts.Modified})
		if err != nil {
			return fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return nil
	}

	entries, err := fs.ReadDir(assets, "assets")
	if err != nil {
		return fmt.Errorf("reading viewer assets: %w", err)
	}
	for _, entry := range entries {
		data, err := assets.ReadFile(path.Join("assets", entry.Name()))
		if err != nil {
			return fmt.Errorf("reading viewer asset %s: %w", entry.Name(), err)
		}
		if err := add(entry.Name(), data, zip.Deflate); err != nil {
			return err
		}
	}

	for _, name := range LibFiles {
		if opts.LibDir == "" {
			opts.Logger.Warn("viewer library directory not configured, skipping", "file", name)
			continue
		}
		data, err := os.ReadFile(filepath.Join(opts.LibDir, name))
		if err != nil {
			opts.Logger.Warn("could not copy viewer library into bundle", "file", name, "error", err)
			continue
		}
		if err := add(path.Join(LibDir, name), data, zip.Deflate); err != nil {
			return err
		}
	}

	if err := add(TourFile, tourJSON, zip.Deflate); err != nil {
		return err
	}

	for _, id := range project.SceneIDs() {
		img, ok := images[id]
		if !ok {
			continue
		}
		// Images are already compressed.
		if err := add(paths[id], img.Data, zip.Store); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing bundle: %w", err)
	}
	return nil
}

// Manifest renders tour.json for project, pointing each scene at its
// bundled image.
func Manifest(project *tour.Project, images map[string]Image) ([]byte, error) {
	return manifest(project, ImagePaths(project, images))
}

func manifest(project *tour.Project, paths map[string]string) ([]byte, error) {
	out := project.Clone()
	for _, id := range out.SceneIDs() {
		scene := tour.NormalizeScene(id, out.Scenes[id])
		scene.Type = "equirectangular"
		scene.PanoramaData = ""
		if p, ok := paths[id]; ok {
			scene.Panorama = p
		} else if !tour.IsRemoteRef(scene.Panorama) {
			return nil, fmt.Errorf("%w: %s", ErrMissingImage, id)
		}
		out.Scenes[id] = scene
	}
	out.RepairStartScene()
	if out.StartScene == "" {
		if ids := out.SceneIDs(); len(ids) > 0 {
			out.StartScene = ids[0]
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", TourFile, err)
	}
	return data, nil
}

var unsafeNameChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// ImagePaths assigns every scene in images a distinct bundle path. Scene
// ids that sanitize to the same file name, or differ only in case, get a
// numeric suffix in scene id order.
func ImagePaths(project *tour.Project, images map[string]Image) map[string]string {
	paths := make(map[string]string, len(images))
	taken := make(map[string]bool, len(images))
	for _, id := range project.SceneIDs() {
		img, ok := images[id]
		if !ok {
			continue
		}
		base := ImageDir + "/" + unsafeNameChars.Replace(id)
		ext := Extension(img.ContentType)
		p := base + ext
		for n := 1; taken[strings.ToLower(p)]; n++ {
			p = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		taken[strings.ToLower(p)] = true
		paths[id] = p
	}
	return paths
}

// Extension maps an image content type to a file extension.
func Extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
