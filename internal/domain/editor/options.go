package editor

import (
	"log/slog"
	"time"

	"github.com/rpggio/panotour/internal/clock"
	"github.com/rpggio/panotour/internal/media"
)

// Options configures a Session.
type Options struct {
	Clock         clock.Clock
	Logger        *slog.Logger
	AutosaveKey   string
	AutosaveDelay time.Duration
	Registry      *media.Registry
	// BundleLibDir holds the viewer library copied into exported bundles.
	BundleLibDir string
}

// HotspotUpdate describes a partial hotspot edit. Nil fields are left as is.
type HotspotUpdate struct {
	Text          *string
	TargetSceneID *string
}
