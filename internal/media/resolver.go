package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/domain/tour"
)

// BlobStore is the slice of the blob store the resolver depends on.
type BlobStore interface {
	Get(ctx context.Context, id string) (*blobstore.Blob, bool, error)
	Put(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// SceneSource looks up the current record for a scene. It returns a copy
// the resolver may read without further locking.
type SceneSource interface {
	Scene(id string) (*tour.Scene, bool)
}

// Options configures a Resolver.
type Options struct {
	Registry *Registry
	Logger   *slog.Logger
	// Unpersisted is called with the scene id when an embedded image
	// could not be migrated into the blob store. The embedded data is then
	// the only durable copy.
	Unpersisted func(sceneID string)
}

// Resolver materializes media handles for scenes and owns their lifetime.
type Resolver struct {
	store    BlobStore
	scenes   SceneSource
	registry *Registry
	logger   *slog.Logger
	tiers    []Tier

	unpersisted func(sceneID string)

	mu    sync.Mutex
	cache map[string]*Handle
}

// NewResolver creates a resolver backed by store. A nil store limits
// resolution to embedded and remote images.
func NewResolver(store BlobStore, scenes SceneSource, opts Options) *Resolver {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Resolver{
		store:    store,
		scenes:   scenes,
		registry: opts.Registry,
		logger:   opts.Logger,
		cache:    make(map[string]*Handle),

		unpersisted: opts.Unpersisted,
	}
	r.tiers = []Tier{cacheTier{r}, storeTier{r}, embeddedTier{r}, remoteTier{}}
	return r
}

// Registry exposes the local reference registry backing object-store handles.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve returns the media handle for sceneID, or nil when the scene
// has no displayable image. Only context cancellation is reported as an
// error; storage failures are logged and the next tier is tried.
func (r *Resolver) Resolve(ctx context.Context, sceneID string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scene, ok := r.scenes.Scene(sceneID)
	if !ok {
		r.Release(sceneID)
		return nil, nil
	}

	req := &Request{SceneID: sceneID, Scene: scene}
	for i, tier := range r.tiers {
		h, found, err := tier.Lookup(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("media tier failed",
				slog.String("tier", tier.Name()),
				slog.String("scene", sceneID),
				slog.Any("error", err))
			continue
		}
		if !found {
			continue
		}
		if i == 0 {
			return h, nil
		}
		r.logger.Debug("resolved scene media", slog.String("scene", sceneID), slog.String("tier", tier.Name()))
		return r.adopt(ctx, req, h), nil
	}

	r.logger.Warn("scene media unavailable", slog.String("scene", sceneID), slog.Any("error", ErrMissingMedia))
	return nil, nil
}

// adopt caches a freshly built handle unless the scene vanished while it
// was being resolved or another resolution won the race.
func (r *Resolver) adopt(ctx context.Context, req *Request, h *Handle) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.cache[req.SceneID]; ok {
		r.release(h)
		return existing
	}
	if _, ok := r.scenes.Scene(req.SceneID); !ok {
		r.release(h)
		if req.persisted && r.store != nil {
			if err := r.store.Delete(ctx, req.SceneID); err != nil {
				r.logger.Warn("could not remove blob for deleted scene", slog.String("scene", req.SceneID), slog.Any("error", err))
			}
		}
		r.logger.Debug("discarding media for deleted scene", slog.String("scene", req.SceneID))
		return nil
	}
	r.cache[req.SceneID] = h
	return h
}

// Set installs media for sceneID from raw bytes, replacing and releasing
// any handle already cached for it.
func (r *Resolver) Set(sceneID string, data []byte, contentType string) *Handle {
	h := r.localHandle(sceneID, data, contentType, "")
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.cache[sceneID]; ok {
		r.release(prev)
	}
	r.cache[sceneID] = h
	return h
}

// Cached returns the handle already resolved for sceneID, if any.
func (r *Resolver) Cached(sceneID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.cache[sceneID]
	return h, ok
}

// Release drops the cached handle for sceneID and frees its local reference.
func (r *Resolver) Release(sceneID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.cache[sceneID]; ok {
		delete(r.cache, sceneID)
		r.release(h)
	}
}

// ReleaseAll drops every cached handle.
func (r *Resolver) ReleaseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.cache {
		delete(r.cache, id)
		r.release(h)
	}
}

func (r *Resolver) release(h *Handle) {
	if h.Local() {
		r.registry.Revoke(h.Ref)
	}
}

func (r *Resolver) localHandle(sceneID string, data []byte, contentType, fallbackThumb string) *Handle {
	thumb := Thumbnail(data)
	if thumb == "" {
		thumb = fallbackThumb
	}
	return &Handle{
		SceneID:     sceneID,
		Ref:         r.registry.Mint(data, contentType),
		Thumbnail:   thumb,
		Origin:      OriginObjectStore,
		ContentType: contentType,
	}
}

// ImageData returns the raw image bytes for sceneID, looking in the blob
// store, then the cached local handle, then embedded data. It returns
// ErrMissingMedia when none of them has the image.
func (r *Resolver) ImageData(ctx context.Context, sceneID string) ([]byte, string, error) {
	if r.store != nil {
		blob, ok, err := r.store.Get(ctx, sceneID)
		switch {
		case err != nil && !errors.Is(err, blobstore.ErrStorageUnavailable):
			r.logger.Warn("blob store read failed", slog.String("scene", sceneID), slog.Any("error", err))
		case ok:
			return blob.Data, blob.ContentType, nil
		}
	}

	if h, ok := r.Cached(sceneID); ok && h.Local() {
		if data, contentType, ok := r.registry.Lookup(h.Ref); ok {
			return data, contentType, nil
		}
	}

	if scene, ok := r.scenes.Scene(sceneID); ok {
		if ref := scene.EmbeddedData(); ref != "" {
			data, contentType, err := DecodeDataURL(ref)
			if err != nil {
				return nil, "", fmt.Errorf("scene %s: %w", sceneID, err)
			}
			return data, contentType, nil
		}
	}
	return nil, "", fmt.Errorf("scene %s: %w", sceneID, ErrMissingMedia)
}
