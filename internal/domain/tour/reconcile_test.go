package tour_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestReconcile_CorruptSnapshotYieldsDefault(t *testing.T) {
	proj := tour.Reconcile([]byte("{not json"), fixedNow)
	require.Equal(t, tour.NewProject(fixedNow), proj)

	proj = tour.Reconcile([]byte(`[1,2,3]`), fixedNow)
	require.Equal(t, tour.NewProject(fixedNow), proj)

	proj = tour.Reconcile(nil, fixedNow)
	require.Equal(t, tour.NewProject(fixedNow), proj)
}

func TestReconcile_MergesMetaWithDefaults(t *testing.T) {
	data := []byte(`{"meta":{"title":"Museum","author":42,"created":"2025-01-02T03:04:05Z","updated":"yesterday"}}`)
	proj := tour.Reconcile(data, fixedNow)

	require.Equal(t, "Museum", proj.Meta.Title)
	require.Equal(t, tour.DefaultAuthor, proj.Meta.Author)
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), proj.Meta.Created)
	require.Equal(t, fixedNow, proj.Meta.Updated)
	require.NotNil(t, proj.Scenes)
	require.Empty(t, proj.Scenes)
}

func TestReconcile_CoercesScenes(t *testing.T) {
	data := []byte(`{"scenes":"nope"}`)
	proj := tour.Reconcile(data, fixedNow)
	require.NotNil(t, proj.Scenes)
	require.Empty(t, proj.Scenes)

	data = []byte(`{"scenes":{
		"hall":{"title":"Hall","yaw":"left","pitch":null,"hfov":90,"hotSpots":"bad"},
		"yard":5,
		"attic":{"hotSpots":[{"id":"h1","pitch":1.5,"yaw":-20,"type":"scene","sceneId":"hall","text":"Back"},"junk",{"text":"note"}]}
	}}`)
	proj = tour.Reconcile(data, fixedNow)
	require.Len(t, proj.Scenes, 3)

	hall := proj.Scenes["hall"]
	require.Equal(t, "hall", hall.ID)
	require.Equal(t, "Hall", hall.Title)
	require.Equal(t, tour.DefaultYaw, hall.Yaw)
	require.Equal(t, tour.DefaultPitch, hall.Pitch)
	require.Equal(t, 90.0, hall.Hfov)
	require.NotNil(t, hall.HotSpots)
	require.Empty(t, hall.HotSpots)

	yard := proj.Scenes["yard"]
	require.Equal(t, "yard", yard.Title)
	require.Equal(t, tour.DefaultHfov, yard.Hfov)
	require.NotNil(t, yard.HotSpots)

	attic := proj.Scenes["attic"]
	require.Len(t, attic.HotSpots, 2)
	require.Equal(t, tour.Hotspot{ID: "h1", Pitch: 1.5, Yaw: -20, Type: tour.HotspotScene, SceneID: "hall", Text: "Back"}, attic.HotSpots[0])
	require.Equal(t, tour.HotspotInfo, attic.HotSpots[1].Type)
	require.NotEmpty(t, attic.HotSpots[1].ID)
}

func TestReconcile_RepairsDanglingStartScene(t *testing.T) {
	data := []byte(`{"startScene":"gone","scenes":{"b":{},"a":{}}}`)
	proj := tour.Reconcile(data, fixedNow)
	require.Contains(t, proj.Scenes, proj.StartScene)

	data = []byte(`{"startScene":"gone","scenes":{}}`)
	proj = tour.Reconcile(data, fixedNow)
	require.Empty(t, proj.StartScene)

	data = []byte(`{"startScene":"b","scenes":{"b":{},"a":{}}}`)
	proj = tour.Reconcile(data, fixedNow)
	require.Equal(t, "b", proj.StartScene)
}

func TestReconcile_RoundTrip(t *testing.T) {
	proj := tour.NewProject(fixedNow)
	proj.Meta.Title = "Round trip"
	proj.StartScene = "lobby"
	proj.Scenes["lobby"] = &tour.Scene{
		ID: "lobby", Title: "Lobby", Yaw: 12.5, Pitch: -3, Hfov: 95,
		HotSpots: []tour.Hotspot{
			{ID: "hs-1", Pitch: 2, Yaw: 40, Type: tour.HotspotScene, SceneID: "roof", Text: "Roof"},
			{ID: "hs-2", Pitch: -8, Yaw: 170, Type: tour.HotspotInfo, Text: "Reception"},
		},
	}
	proj.Scenes["roof"] = &tour.Scene{ID: "roof", Title: "Roof", Hfov: 120}

	data, err := json.Marshal(proj)
	require.NoError(t, err)

	back := tour.Reconcile(data, fixedNow.Add(time.Hour))
	require.Equal(t, proj.Meta, back.Meta)
	require.Equal(t, proj.StartScene, back.StartScene)
	for id, scene := range proj.Scenes {
		want := tour.NormalizeScene(id, scene)
		got := back.Scenes[id]
		require.Equal(t, want.Yaw, got.Yaw)
		require.Equal(t, want.Pitch, got.Pitch)
		require.Equal(t, want.Hfov, got.Hfov)
		require.Equal(t, want.HotSpots, got.HotSpots)
	}
}

func TestNormalizeScene_NonFiniteValues(t *testing.T) {
	scene := tour.NormalizeScene("x", &tour.Scene{Yaw: math.NaN(), Pitch: math.Inf(1), Hfov: math.Inf(-1)})
	require.Equal(t, tour.DefaultYaw, scene.Yaw)
	require.Equal(t, tour.DefaultPitch, scene.Pitch)
	require.Equal(t, tour.DefaultHfov, scene.Hfov)
	require.NotNil(t, scene.HotSpots)

	scene = tour.NormalizeScene("y", nil)
	require.Equal(t, "y", scene.Title)
	require.Equal(t, []tour.Hotspot{}, scene.HotSpots)
}

func TestParseImport(t *testing.T) {
	_, err := tour.ParseImport([]byte("{not json"), fixedNow)
	require.ErrorIs(t, err, tour.ErrMalformedPersisted)

	_, err = tour.ParseImport([]byte("  "), fixedNow)
	require.ErrorIs(t, err, tour.ErrMalformedPersisted)

	_, err = tour.ParseImport([]byte(`"string"`), fixedNow)
	require.ErrorIs(t, err, tour.ErrMalformedPersisted)

	proj, err := tour.ParseImport([]byte(`{
		// hand-edited
		"meta": {"title": "Edited"},
		"scenes": {"a": {"hfov": 80,},},
	}`), fixedNow)
	require.NoError(t, err)
	require.Equal(t, "Edited", proj.Meta.Title)
	require.Equal(t, 80.0, proj.Scenes["a"].Hfov)
}

func TestSnapshot_StripsEmbeddedData(t *testing.T) {
	proj := tour.NewProject(fixedNow)
	proj.Scenes["a"] = &tour.Scene{ID: "a", PanoramaData: "data:image/png;base64,AAAA", ThumbURL: "data:image/jpeg;base64,BBBB"}
	proj.Scenes["b"] = &tour.Scene{ID: "b", Panorama: "https://example.com/b.jpg"}
	proj.Scenes["c"] = &tour.Scene{ID: "c", Panorama: "blob:1234"}

	later := fixedNow.Add(time.Minute)
	data, err := tour.Snapshot(proj, later, tour.SnapshotOptions{})
	require.NoError(t, err)
	require.Equal(t, later, proj.Meta.Updated)

	back := tour.Reconcile(data, fixedNow)
	require.Empty(t, back.Scenes["a"].PanoramaData)
	require.Empty(t, back.Scenes["a"].ThumbURL)
	require.Equal(t, "https://example.com/b.jpg", back.Scenes["b"].Panorama)
	require.Empty(t, back.Scenes["c"].Panorama)
	require.Equal(t, later, back.Meta.Updated)

	data, err = tour.Snapshot(proj, later, tour.SnapshotOptions{KeepEmbedded: true})
	require.NoError(t, err)
	back = tour.Reconcile(data, fixedNow)
	require.Equal(t, "data:image/png;base64,AAAA", back.Scenes["a"].EmbeddedData())
	require.Empty(t, back.Scenes["c"].Panorama)
}

func TestSnapshot_KeepsInlineScenes(t *testing.T) {
	proj := tour.NewProject(fixedNow)
	proj.Scenes["a"] = &tour.Scene{ID: "a", PanoramaData: "data:image/png;base64,AAAA"}
	proj.Scenes["b"] = &tour.Scene{ID: "b", PanoramaData: "data:image/png;base64,BBBB"}

	data, err := tour.Snapshot(proj, fixedNow, tour.SnapshotOptions{Inline: map[string]bool{"a": true}})
	require.NoError(t, err)
	back := tour.Reconcile(data, fixedNow)
	require.Equal(t, "data:image/png;base64,AAAA", back.Scenes["a"].EmbeddedData())
	require.Empty(t, back.Scenes["b"].EmbeddedData())
}
