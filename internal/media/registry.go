package media

import (
	"sync"

	"github.com/google/uuid"
)

// Registry hands out transient local references for in-memory image
// bytes. A reference stays resolvable until it is revoked.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

type registryEntry struct {
	data        []byte
	contentType string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Mint registers data and returns its reference.
func (r *Registry) Mint(data []byte, contentType string) string {
	ref := "blob:" + uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[ref] = registryEntry{data: data, contentType: contentType}
	return ref
}

// Lookup returns the bytes behind ref.
func (r *Registry) Lookup(ref string) ([]byte, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[ref]
	return entry.data, entry.contentType, ok
}

// Revoke frees ref. Revoking an unknown reference is a no-op.
func (r *Registry) Revoke(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, ref)
}

// Len reports how many references are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
