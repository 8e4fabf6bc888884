package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rpggio/panotour/internal/domain/tour"
)

// Request is one in-flight resolution.
type Request struct {
	SceneID string
	Scene   *tour.Scene

	// persisted is set when a tier wrote into the blob store on behalf of
	// this request.
	persisted bool
}

// Tier is one step of the resolution chain. A tier that has nothing to
// offer returns found == false; an error is logged and the chain moves on.
type Tier interface {
	Name() string
	Lookup(ctx context.Context, req *Request) (h *Handle, found bool, err error)
}

type cacheTier struct{ r *Resolver }

func (cacheTier) Name() string { return "cache" }

func (t cacheTier) Lookup(_ context.Context, req *Request) (*Handle, bool, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	h, ok := t.r.cache[req.SceneID]
	return h, ok, nil
}

type storeTier struct{ r *Resolver }

func (storeTier) Name() string { return "blob-store" }

func (t storeTier) Lookup(ctx context.Context, req *Request) (*Handle, bool, error) {
	if t.r.store == nil {
		return nil, false, nil
	}
	blob, ok, err := t.r.store.Get(ctx, req.SceneID)
	if err != nil || !ok {
		return nil, false, err
	}
	return t.r.localHandle(req.SceneID, blob.Data, blob.ContentType, req.Scene.ThumbURL), true, nil
}

type embeddedTier struct{ r *Resolver }

func (embeddedTier) Name() string { return "embedded" }

func (t embeddedTier) Lookup(ctx context.Context, req *Request) (*Handle, bool, error) {
	ref := req.Scene.EmbeddedData()
	if ref == "" {
		return nil, false, nil
	}
	data, contentType, err := DecodeDataURL(ref)
	if err != nil {
		return nil, false, fmt.Errorf("decoding embedded image: %w", err)
	}
	if contentType == "" || contentType == "text/plain" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	if t.r.store != nil {
		if err := t.r.store.Put(ctx, req.SceneID, data); err != nil {
			t.r.logger.Warn("could not migrate embedded image into blob store",
				slog.String("scene", req.SceneID), slog.Any("error", err))
			if t.r.unpersisted != nil {
				t.r.unpersisted(req.SceneID)
			}
		} else {
			req.persisted = true
		}
	}
	return t.r.localHandle(req.SceneID, data, contentType, req.Scene.ThumbURL), true, nil
}

type remoteTier struct{}

func (remoteTier) Name() string { return "remote" }

func (remoteTier) Lookup(_ context.Context, req *Request) (*Handle, bool, error) {
	if !tour.IsRemoteRef(req.Scene.Panorama) {
		return nil, false, nil
	}
	return &Handle{
		SceneID:   req.SceneID,
		Ref:       req.Scene.Panorama,
		Thumbnail: req.Scene.ThumbURL,
		Origin:    OriginExternal,
	}, true, nil
}
