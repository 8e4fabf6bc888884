package blobstore

import (
	"context"
	"sort"
	"sync"

	"github.com/rpggio/panotour/internal/repository"
)

// MemoryBackend keeps blobs in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{blobs: make(map[string]Blob)}
}

// MemoryOpener returns an Opener that always yields backend.
func MemoryOpener(backend *MemoryBackend) Opener {
	return func(context.Context) (Backend, error) { return backend, nil }
}

func (m *MemoryBackend) Put(_ context.Context, id string, blob Blob) error {
	blob.Data = append([]byte(nil), blob.Data...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = blob
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, id string) (*Blob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	blob.Data = append([]byte(nil), blob.Data...)
	return &blob, nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

func (m *MemoryBackend) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.blobs))
	for id, blob := range m.blobs {
		entries = append(entries, Entry{ID: id, ContentType: blob.ContentType, Size: blob.Size, UpdatedAt: blob.UpdatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
