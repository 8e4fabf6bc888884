package tour

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const fallbackSceneBase = "scene"

var whitespaceRun = regexp.MustCompile(`\s+`)

// SceneBaseName derives a scene id base from an uploaded file name.
func SceneBaseName(fileName string) string {
	base := strings.TrimSpace(fileName)
	if base != "" {
		base = filepath.Base(base)
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	base = whitespaceRun.ReplaceAllString(strings.TrimSpace(base), "-")
	if base == "" {
		return fallbackSceneBase
	}
	return base
}

// UniqueSceneID returns base, or base-N for the first free N starting at 1.
func UniqueSceneID(base string, taken func(string) bool) string {
	if base == "" {
		base = fallbackSceneBase
	}
	id := base
	for i := 1; taken(id); i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return id
}

// NewHotspotID returns a fresh hotspot identifier.
func NewHotspotID() string {
	return "hs-" + uuid.NewString()
}
