// Package blobstore stores scene images keyed by scene id. Operations
// on the same id are serialized; different ids proceed independently.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rpggio/panotour/internal/clock"
	"github.com/rpggio/panotour/internal/repository"
)

// Store is the process-wide blob store.
type Store struct {
	opener Opener
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	opened  bool
	backend Backend
	openErr error

	keys *keyLocks
}

// Options configures a Store.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// New creates a store whose backend is prepared lazily by opener.
func New(opener Opener, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		opener: opener,
		clock:  opts.Clock,
		logger: opts.Logger,
		keys:   newKeyLocks(),
	}
}

// Unavailable returns a store that reports ErrStorageUnavailable.
func Unavailable(reason string, logger *slog.Logger) *Store {
	return New(func(context.Context) (Backend, error) {
		return nil, errors.New(reason)
	}, Options{Logger: logger})
}

// Open prepares the backend. It is safe to call repeatedly; only the
// first call reaches the opener and its outcome is remembered.
func (s *Store) Open(ctx context.Context) error {
	_, err := s.ready(ctx)
	return err
}

// Available reports whether the store opened successfully.
func (s *Store) Available(ctx context.Context) bool {
	return s.Open(ctx) == nil
}

func (s *Store) ready(ctx context.Context) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return s.backend, s.openErr
	}
	s.opened = true

	if s.opener == nil {
		s.openErr = fmt.Errorf("%w: no backend configured", ErrStorageUnavailable)
		return nil, s.openErr
	}
	backend, err := s.opener(ctx)
	if err == nil && backend == nil {
		err = errors.New("opener returned no backend")
	}
	if err != nil {
		s.openErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		s.logger.Warn("blob store unavailable, continuing in memory", "error", err)
		return nil, s.openErr
	}
	s.backend = backend
	return backend, nil
}

// Put stores data under id, replacing any previous entry.
func (s *Store) Put(ctx context.Context, id string, data []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	backend, err := s.ready(ctx)
	if err != nil {
		return err
	}

	unlock := s.keys.lock(id)
	defer unlock()

	if err := backend.Put(ctx, id, NewBlob(data, s.clock.Now())); err != nil {
		return fmt.Errorf("storing blob %s: %w", id, err)
	}
	return nil
}

// Get returns the blob stored under id. A missing or damaged entry is
// reported as absent rather than as an error.
func (s *Store) Get(ctx context.Context, id string) (*Blob, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, ErrInvalidID
	}
	backend, err := s.ready(ctx)
	if err != nil {
		return nil, false, err
	}

	unlock := s.keys.lock(id)
	defer unlock()

	blob, err := backend.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading blob %s: %w", id, err)
	}
	if !blob.Intact() {
		s.logger.Warn("discarding damaged blob", "id", id, "size", len(blob.Data), "expected_size", blob.Size)
		return nil, false, nil
	}
	return blob, true, nil
}

// Delete removes id. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	backend, err := s.ready(ctx)
	if err != nil {
		return err
	}

	unlock := s.keys.lock(id)
	defer unlock()

	if err := backend.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("deleting blob %s: %w", id, err)
	}
	return nil
}

// List returns every stored entry.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	backend, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	return entries, nil
}
