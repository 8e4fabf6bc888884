package media_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/tour"
	"github.com/rpggio/panotour/internal/media"
	"github.com/rpggio/panotour/internal/repository"
	"github.com/rpggio/panotour/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sceneMap struct {
	mu     sync.Mutex
	scenes map[string]*tour.Scene
}

func newSceneMap(scenes ...*tour.Scene) *sceneMap {
	m := &sceneMap{scenes: make(map[string]*tour.Scene)}
	for _, s := range scenes {
		m.scenes[s.ID] = s
	}
	return m
}

func (m *sceneMap) Scene(id string) (*tour.Scene, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (m *sceneMap) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scenes, id)
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T) *blobstore.Store {
	t.Helper()
	store := blobstore.New(blobstore.MemoryOpener(blobstore.NewMemoryBackend()), blobstore.Options{})
	require.NoError(t, store.Open(context.Background()))
	return store
}

func TestDataURL_RoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	ref := media.EncodeDataURL(data, "image/png")
	require.True(t, tour.IsDataURL(ref))

	got, contentType, err := media.DecodeDataURL(ref)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, "image/png", contentType)

	got, contentType, err = media.DecodeDataURL("data:,hello%20world")
	require.NoError(t, err)
	require.Equal(t, "hello world", string(got))
	require.Equal(t, "text/plain", contentType)

	_, _, err = media.DecodeDataURL("data:image/png;base64")
	require.ErrorIs(t, err, media.ErrInvalidDataURL)
	_, _, err = media.DecodeDataURL("https://example.com/a.jpg")
	require.ErrorIs(t, err, media.ErrInvalidDataURL)
}

func TestThumbnail(t *testing.T) {
	thumb := media.Thumbnail(testPNG(t, 200, 100))
	require.NotEmpty(t, thumb)

	data, contentType, err := media.DecodeDataURL(thumb)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", contentType)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, media.ThumbnailSize, img.Bounds().Dx())
	require.Equal(t, media.ThumbnailSize, img.Bounds().Dy())

	require.Empty(t, media.Thumbnail([]byte("not an image")))
}

func TestRegistry(t *testing.T) {
	reg := media.NewRegistry()
	ref := reg.Mint([]byte("abc"), "image/jpeg")
	require.Contains(t, ref, "blob:")

	data, contentType, ok := reg.Lookup(ref)
	require.True(t, ok)
	require.Equal(t, "abc", string(data))
	require.Equal(t, "image/jpeg", contentType)

	reg.Revoke(ref)
	reg.Revoke(ref)
	_, _, ok = reg.Lookup(ref)
	require.False(t, ok)
	require.Zero(t, reg.Len())
}

func TestResolve_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, "a", testPNG(t, 32, 16)))
	scenes := newSceneMap(&tour.Scene{ID: "a", Title: "A"})
	resolver := media.NewResolver(store, scenes, media.Options{})

	first, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, media.OriginObjectStore, first.Origin)
	require.NotEmpty(t, first.Thumbnail)

	second, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, resolver.Registry().Len())
}

func TestResolve_MigratesEmbeddedData(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	data := testPNG(t, 8, 8)
	scenes := newSceneMap(&tour.Scene{ID: "a", PanoramaData: media.EncodeDataURL(data, "image/png")})
	resolver := media.NewResolver(store, scenes, media.Options{})

	h, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, h)

	blob, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, data, blob.Data)

	got, contentType, ok := resolver.Registry().Lookup(h.Ref)
	require.True(t, ok)
	require.Equal(t, data, got)
	require.Equal(t, "image/png", contentType)
}

func TestResolve_EmbeddedAndStoredScenes(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, "B", testPNG(t, 4, 4)))
	scenes := newSceneMap(
		&tour.Scene{ID: "A", Panorama: media.EncodeDataURL(testPNG(t, 6, 6), "image/png")},
		&tour.Scene{ID: "B"},
	)
	resolver := media.NewResolver(store, scenes, media.Options{})

	a, err := resolver.Resolve(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := resolver.Resolve(ctx, "B")
	require.NoError(t, err)
	require.NotNil(t, b)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	require.ElementsMatch(t, []string{"A", "B"}, ids)
}

func TestResolve_RemoteAndAbsent(t *testing.T) {
	ctx := context.Background()
	scenes := newSceneMap(
		&tour.Scene{ID: "remote", Panorama: "https://cdn.example.com/pano.jpg", ThumbURL: "data:image/jpeg;base64,AA=="},
		&tour.Scene{ID: "empty"},
	)
	resolver := media.NewResolver(newStore(t), scenes, media.Options{})

	h, err := resolver.Resolve(ctx, "remote")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, media.OriginExternal, h.Origin)
	require.Equal(t, "https://cdn.example.com/pano.jpg", h.Ref)
	require.Equal(t, "data:image/jpeg;base64,AA==", h.Thumbnail)
	require.False(t, h.Local())

	h, err = resolver.Resolve(ctx, "empty")
	require.NoError(t, err)
	require.Nil(t, h)

	h, err = resolver.Resolve(ctx, "unknown")
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestResolve_StoreUnavailableKeepsEmbeddedImage(t *testing.T) {
	ctx := context.Background()
	data := testPNG(t, 4, 4)
	scenes := newSceneMap(&tour.Scene{ID: "a", PanoramaData: media.EncodeDataURL(data, "image/png")})
	resolver := media.NewResolver(blobstore.Unavailable("disabled", nil), scenes, media.Options{})

	h, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.True(t, h.Local())

	got, _, err := resolver.ImageData(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestResolve_ReportsFailedMigration(t *testing.T) {
	ctx := context.Background()
	backend := new(mocks.BlobRepository)
	backend.On("Get", mock.Anything, "a").Return(nil, repository.ErrNotFound)
	backend.On("Put", mock.Anything, "a", mock.Anything).Return(errors.New("database or disk is full"))
	store := blobstore.New(func(context.Context) (blobstore.Backend, error) {
		return backend, nil
	}, blobstore.Options{})

	data := testPNG(t, 4, 4)
	scenes := newSceneMap(&tour.Scene{ID: "a", PanoramaData: media.EncodeDataURL(data, "image/png")})
	var unpersisted []string
	resolver := media.NewResolver(store, scenes, media.Options{
		Unpersisted: func(id string) { unpersisted = append(unpersisted, id) },
	})

	h, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, []string{"a"}, unpersisted)

	got, _, ok := resolver.Registry().Lookup(h.Ref)
	require.True(t, ok)
	require.Equal(t, data, got)
	backend.AssertExpectations(t)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, "a", testPNG(t, 4, 4)))
	require.NoError(t, store.Put(ctx, "b", testPNG(t, 4, 4)))
	scenes := newSceneMap(&tour.Scene{ID: "a"}, &tour.Scene{ID: "b"})
	resolver := media.NewResolver(store, scenes, media.Options{})

	a, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 2, resolver.Registry().Len())

	resolver.Release("a")
	_, _, ok := resolver.Registry().Lookup(a.Ref)
	require.False(t, ok)
	_, ok = resolver.Cached("a")
	require.False(t, ok)

	resolver.ReleaseAll()
	require.Zero(t, resolver.Registry().Len())
}

func TestResolve_DeletedSceneIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, "a", testPNG(t, 4, 4)))
	scenes := newSceneMap(&tour.Scene{ID: "a"})
	resolver := media.NewResolver(store, scenes, media.Options{})

	h, err := resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, h)

	scenes.remove("a")
	require.NoError(t, store.Delete(ctx, "a"))
	resolver.Release("a")

	h, err = resolver.Resolve(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, h)
	require.Zero(t, resolver.Registry().Len())
}

func TestSet_ReplacesPreviousHandle(t *testing.T) {
	scenes := newSceneMap(&tour.Scene{ID: "a"})
	resolver := media.NewResolver(nil, scenes, media.Options{})

	first := resolver.Set("a", testPNG(t, 4, 4), "image/png")
	second := resolver.Set("a", testPNG(t, 8, 8), "image/png")
	require.NotEqual(t, first.Ref, second.Ref)

	_, _, ok := resolver.Registry().Lookup(first.Ref)
	require.False(t, ok)
	cached, ok := resolver.Cached("a")
	require.True(t, ok)
	require.Same(t, second, cached)
}

func TestImageData_Missing(t *testing.T) {
	scenes := newSceneMap(&tour.Scene{ID: "a"})
	resolver := media.NewResolver(newStore(t), scenes, media.Options{})
	_, _, err := resolver.ImageData(context.Background(), "a")
	require.ErrorIs(t, err, media.ErrMissingMedia)
}
