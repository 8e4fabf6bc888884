package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/stretchr/testify/require"
)

type memorySlot struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memorySlot) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySlot) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func newTestEditor(t *testing.T) *editor.Session {
	t.Helper()
	store := blobstore.New(blobstore.MemoryOpener(blobstore.NewMemoryBackend()), blobstore.Options{})
	session := editor.NewSession(store, &memorySlot{values: map[string][]byte{}}, editor.Options{})
	require.NoError(t, session.Restore(context.Background()))
	t.Cleanup(func() { _ = session.Close(context.Background()) })
	return session
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 60), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func call(t *testing.T, h *Handler, method string, params any) (any, error) {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	return h.Handle(context.Background(), method, raw)
}

func TestHandler_BuildsTour(t *testing.T) {
	h := NewHandler(newTestEditor(t))
	data := base64.StdEncoding.EncodeToString(testPNG(t))

	res, err := call(t, h, "add_scene", AddSceneParams{Name: "Hall.png", Data: data})
	require.NoError(t, err)
	hall := res.(tour.Scene)
	require.Equal(t, "Hall", hall.ID)
	require.Empty(t, hall.Panorama)

	path := filepath.Join(t.TempDir(), "Kitchen.png")
	require.NoError(t, os.WriteFile(path, testPNG(t), 0o644))
	res, err = call(t, h, "add_scene", AddSceneParams{Path: path})
	require.NoError(t, err)
	kitchen := res.(tour.Scene)
	require.Equal(t, "Kitchen", kitchen.ID)

	res, err = call(t, h, "add_link_hotspot", AddLinkHotspotParams{SceneID: "Hall", TargetID: "Kitchen", Pitch: -5, Yaw: 40})
	require.NoError(t, err)
	link := res.(tour.Hotspot)
	require.Equal(t, "Kitchen", link.Text)

	_, err = call(t, h, "rename_scene", RenameSceneParams{SceneID: "Kitchen", Title: "Galley"})
	require.NoError(t, err)
	_, err = call(t, h, "save_view", SaveViewParams{SceneID: "Kitchen", Pitch: 10, Yaw: 90, Hfov: 80})
	require.NoError(t, err)
	_, err = call(t, h, "set_start_scene", SceneIDParams{SceneID: "Kitchen"})
	require.NoError(t, err)

	res, err = h.Handle(context.Background(), "get_project", nil)
	require.NoError(t, err)
	project := res.(ProjectResponse)
	require.Equal(t, "Kitchen", project.StartScene)
	require.Len(t, project.Scenes, 2)
	require.Equal(t, "Hall", project.Scenes[0].ID)
	require.Equal(t, "Galley", project.Scenes[0].HotSpots[0].Text)
	require.Equal(t, 80.0, project.Scenes[1].Hfov)
	require.Empty(t, project.Scenes[1].PanoramaData)

	res, err = h.Handle(context.Background(), "list_scenes", nil)
	require.NoError(t, err)
	listing := res.(ListScenesResponse)
	require.Len(t, listing.Scenes, 2)
	require.Equal(t, 1, listing.Scenes[0].Hotspots)
}

func TestHandler_HotspotEdits(t *testing.T) {
	h := NewHandler(newTestEditor(t))
	data := base64.StdEncoding.EncodeToString(testPNG(t))
	_, err := call(t, h, "add_scene", AddSceneParams{Name: "Porch.png", Data: data})
	require.NoError(t, err)

	res, err := call(t, h, "add_info_hotspot", AddInfoHotspotParams{SceneID: "Porch", Text: "Mind the step", Pitch: -20})
	require.NoError(t, err)
	info := res.(tour.Hotspot)

	_, err = call(t, h, "move_hotspot", MoveHotspotParams{SceneID: "Porch", HotspotID: info.ID, Pitch: -25, Yaw: 12})
	require.NoError(t, err)
	text := "Watch the step"
	res, err = call(t, h, "update_hotspot", UpdateHotspotParams{SceneID: "Porch", HotspotID: info.ID, Text: &text})
	require.NoError(t, err)
	updated := res.(tour.Hotspot)
	require.Equal(t, text, updated.Text)
	require.Equal(t, 12.0, updated.Yaw)

	_, err = call(t, h, "delete_hotspot", HotspotRefParams{SceneID: "Porch", HotspotID: info.ID})
	require.NoError(t, err)
	_, err = call(t, h, "delete_hotspot", HotspotRefParams{SceneID: "Porch", HotspotID: info.ID})
	require.Equal(t, "HOTSPOT_NOT_FOUND", MapError(err).Code)
}

func TestHandler_Errors(t *testing.T) {
	h := NewHandler(newTestEditor(t))

	_, err := call(t, h, "delete_scene", SceneIDParams{SceneID: "nowhere"})
	require.Equal(t, "SCENE_NOT_FOUND", MapError(err).Code)

	_, err = call(t, h, "add_scene", AddSceneParams{Name: "x.png"})
	require.Equal(t, "INVALID_INPUT", MapError(err).Code)

	_, err = call(t, h, "add_scene", AddSceneParams{Name: "x.png", Data: "%%%"})
	require.Equal(t, "INVALID_INPUT", MapError(err).Code)

	_, err = h.Handle(context.Background(), "save_view", json.RawMessage(`{"scene_id": 5}`))
	require.Equal(t, "INVALID_INPUT", MapError(err).Code)

	_, err = h.Handle(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	require.Nil(t, MapError(err))
}

func TestHandler_ExportAndImport(t *testing.T) {
	h := NewHandler(newTestEditor(t))
	data := base64.StdEncoding.EncodeToString(testPNG(t))
	_, err := call(t, h, "add_scene", AddSceneParams{Name: "Attic.png", Data: data})
	require.NoError(t, err)

	dir := t.TempDir()
	res, err := call(t, h, "export_project", ExportParams{})
	require.NoError(t, err)
	raw, ok := res.(json.RawMessage)
	require.True(t, ok)
	require.Contains(t, string(raw), "data:image/png;base64,")

	projectPath := filepath.Join(dir, "tour.json")
	res, err = call(t, h, "export_project", ExportParams{Path: projectPath})
	require.NoError(t, err)
	require.Equal(t, projectPath, res.(ExportResponse).Path)

	bundlePath := filepath.Join(dir, "tour.zip")
	res, err = call(t, h, "export_bundle", ExportParams{Path: bundlePath})
	require.NoError(t, err)
	info, err := os.Stat(bundlePath)
	require.NoError(t, err)
	require.Equal(t, info.Size(), res.(ExportResponse).Bytes)

	_, err = call(t, h, "new_project", struct{}{})
	require.NoError(t, err)
	require.Empty(t, h.editor.Project().Scenes)

	res, err = call(t, h, "import_project", ImportProjectParams{Path: projectPath})
	require.NoError(t, err)
	require.Equal(t, ImportResponse{Scenes: 1, StartScene: "Attic"}, res)

	_, err = call(t, h, "import_project", ImportProjectParams{JSON: "[1, 2"})
	require.Equal(t, "INVALID_INPUT", MapError(err).Code)
}

func TestServer_ToolsOverMCP(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(Config{Editor: newTestEditor(t), TransportMode: "stdio"})

	serverT, clientT := sdkmcp.NewInMemoryTransports()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, len(buildToolCatalog()))

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "add_scene",
		Arguments: map[string]any{"name": "Loft.png", "data": base64.StdEncoding.EncodeToString(testPNG(t))},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, res.Content[0].(*sdkmcp.TextContent).Text, `"id": "Loft"`)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "set_start_scene",
		Arguments: map[string]any{"scene_id": "Cellar"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	var apiErr APIError
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*sdkmcp.TextContent).Text), &apiErr))
	require.Equal(t, "SCENE_NOT_FOUND", apiErr.Code)

	doc, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "panotour://docs/hotspots"})
	require.NoError(t, err)
	require.Contains(t, doc.Contents[0].Text, "Link hotspots")
}

func TestAuthMiddleware(t *testing.T) {
	reached := false
	next := func(context.Context, string, sdkmcp.Request) (sdkmcp.Result, error) {
		reached = true
		return nil, nil
	}
	handler := authMiddleware("s3cret")(next)

	request := func(auth string) sdkmcp.Request {
		header := http.Header{}
		if auth != "" {
			header.Set("Authorization", auth)
		}
		return &sdkmcp.CallToolRequest{
			Params: &sdkmcp.CallToolParamsRaw{Name: "get_project"},
			Extra:  &sdkmcp.RequestExtra{Header: header},
		}
	}

	_, err := handler(context.Background(), "tools/call", request(""))
	require.ErrorContains(t, err, "missing bearer token")
	_, err = handler(context.Background(), "tools/call", request("Bearer nope"))
	require.ErrorContains(t, err, "invalid bearer token")
	require.False(t, reached)

	_, err = handler(context.Background(), "tools/call", request("Bearer s3cret"))
	require.NoError(t, err)
	require.True(t, reached)

	reached = false
	_, err = handler(context.Background(), "initialize", request(""))
	require.NoError(t, err)
	require.True(t, reached)
}
