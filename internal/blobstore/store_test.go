package blobstore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/repository"
	"github.com/rpggio/panotour/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) (*blobstore.Store, *blobstore.MemoryBackend) {
	t.Helper()
	backend := blobstore.NewMemoryBackend()
	store := blobstore.New(blobstore.MemoryOpener(backend), blobstore.Options{})
	require.NoError(t, store.Open(context.Background()))
	return store, backend
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	backend := blobstore.NewMemoryBackend()
	store := blobstore.New(func(context.Context) (blobstore.Backend, error) {
		calls.Add(1)
		return backend, nil
	}, blobstore.Options{})

	ctx := context.Background()
	require.NoError(t, store.Open(ctx))
	require.NoError(t, store.Open(ctx))
	require.True(t, store.Available(ctx))
	require.Equal(t, int32(1), calls.Load())
}

func TestStore_Unavailable(t *testing.T) {
	var calls atomic.Int32
	store := blobstore.New(func(context.Context) (blobstore.Backend, error) {
		calls.Add(1)
		return nil, errors.New("no persistent storage")
	}, blobstore.Options{})

	ctx := context.Background()
	require.ErrorIs(t, store.Open(ctx), blobstore.ErrStorageUnavailable)
	require.ErrorIs(t, store.Put(ctx, "a", []byte("x")), blobstore.ErrStorageUnavailable)
	_, _, err := store.Get(ctx, "a")
	require.ErrorIs(t, err, blobstore.ErrStorageUnavailable)
	require.ErrorIs(t, store.Delete(ctx, "a"), blobstore.ErrStorageUnavailable)
	require.False(t, store.Available(ctx))
	require.Equal(t, int32(1), calls.Load())

	require.ErrorIs(t, blobstore.Unavailable("disabled", nil).Open(ctx), blobstore.ErrStorageUnavailable)
}

func TestStore_PutGetDelete(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()

	blob, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, blob)

	require.NoError(t, store.Put(ctx, "hall", []byte("first")))
	require.NoError(t, store.Put(ctx, "hall", []byte("second")))

	blob, ok, err = store.Get(ctx, "hall")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("second"), blob.Data)
	require.Equal(t, int64(6), blob.Size)
	require.Equal(t, blobstore.HashOf([]byte("second")), blob.Hash)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "hall", entries[0].ID)

	require.NoError(t, store.Delete(ctx, "hall"))
	require.NoError(t, store.Delete(ctx, "hall"))
	_, ok, err = store.Get(ctx, "hall")
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, store.Put(ctx, " ", nil), blobstore.ErrInvalidID)
}

func TestStore_DamagedBlobIsAbsent(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.BlobRepository{}
	backend.On("Get", mock.Anything, "torn").Return(&blobstore.Blob{
		Data: []byte("partial"),
		Hash: blobstore.HashOf([]byte("partial write")),
		Size: 13,
	}, nil)
	backend.On("Get", mock.Anything, "gone").Return(nil, repository.ErrNotFound)
	backend.On("Delete", mock.Anything, "gone").Return(repository.ErrNotFound)

	store := blobstore.New(func(context.Context) (blobstore.Backend, error) { return backend, nil }, blobstore.Options{})

	_, ok, err := store.Get(ctx, "torn")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "gone")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Delete(ctx, "gone"))
	backend.AssertExpectations(t)
}

// gatedBackend blocks Put until release is closed.
type gatedBackend struct {
	*blobstore.MemoryBackend
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedBackend) Put(ctx context.Context, id string, blob blobstore.Blob) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.MemoryBackend.Put(ctx, id, blob)
}

func TestStore_SameIDOperationsSerialize(t *testing.T) {
	ctx := context.Background()
	gated := &gatedBackend{
		MemoryBackend: blobstore.NewMemoryBackend(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	require.NoError(t, gated.MemoryBackend.Put(ctx, "a", blobstore.NewBlob([]byte("old"), time.Now())))
	require.NoError(t, gated.MemoryBackend.Put(ctx, "b", blobstore.NewBlob([]byte("other"), time.Now())))

	store := blobstore.New(func(context.Context) (blobstore.Backend, error) { return gated, nil }, blobstore.Options{})

	putDone := make(chan error, 1)
	go func() { putDone <- store.Put(ctx, "a", []byte("new")) }()
	<-gated.entered

	// A different id is not held up by the pending write.
	blob, ok, err := store.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("other"), blob.Data)

	type result struct {
		blob *blobstore.Blob
		ok   bool
	}
	getDone := make(chan result, 1)
	go func() {
		b, ok, _ := store.Get(ctx, "a")
		getDone <- result{b, ok}
	}()

	require.Never(t, func() bool { return len(getDone) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(gated.release)
	require.NoError(t, <-putDone)

	res := <-getDone
	require.True(t, res.ok)
	require.Equal(t, []byte("new"), res.blob.Data)
}
