package mcp

import (
	"context"
	"io"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/domain/tour"
)

// Editor defines the editing session operations exposed as tools.
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
}

// Config contains server configuration.
type Config struct {
	Editor Editor
	// Token is required as a bearer token in http mode when set.
	Token         string
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "panotour",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is a local pipe and never carries headers.
	if cfg.TransportMode != "stdio" && cfg.Token != "" {
		server.AddReceivingMiddleware(authMiddleware(cfg.Token))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, NewHandler(cfg.Editor), cfg.Logger)

	return server
}
