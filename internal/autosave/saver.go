// Package autosave persists the editor's project to a text slot,
// coalescing bursts of edits into a single write.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/panotour/internal/clock"
)

// DefaultDelay is the debounce window between the last edit and the write.
const DefaultDelay = 600 * time.Millisecond

// DefaultSlotKey names the slot the editor autosaves into.
const DefaultSlotKey = "pano_editor_autosave"

// Slot is a persistent key/value text slot.
type Slot interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
}

// Source produces the snapshot to persist at write time.
type Source interface {
	Snapshot(now time.Time) ([]byte, error)
}

// Options configures a Saver.
type Options struct {
	Key    string
	Delay  time.Duration
	Clock  clock.Clock
	Logger *slog.Logger
}

// Saver debounces snapshot writes to a Slot.
type Saver struct {
	slot   Slot
	source Source
	key    string
	delay  time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	pending    *Task
	generation uint64
	lastErr    error

	writeMu sync.Mutex
}

// NewSaver creates a saver writing snapshots from source into slot.
func NewSaver(slot Slot, source Source, opts Options) *Saver {
	if opts.Key == "" {
		opts.Key = DefaultSlotKey
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Saver{
		slot:   slot,
		source: source,
		key:    opts.Key,
		delay:  opts.Delay,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

// Schedule cancels any pending write and arms a new one after the
// debounce window.
func (s *Saver) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending.Cancel()
	s.generation++
	gen := s.generation
	s.pending = ScheduleAfter(s.clock, s.delay, func() { s.fire(gen) })
}

// Pending reports whether a write is armed.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush cancels any pending write and writes immediately.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.pending.Cancel()
	s.pending = nil
	s.generation++
	s.mu.Unlock()

	return s.write(ctx)
}

// Stop discards a pending write without persisting it.
func (s *Saver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.Cancel()
	s.pending = nil
	s.generation++
}

// Load returns the last persisted snapshot, if any.
func (s *Saver) Load(ctx context.Context) ([]byte, bool, error) {
	data, ok, err := s.slot.Read(ctx, s.key)
	if err != nil {
		return nil, false, fmt.Errorf("reading autosave slot: %w", err)
	}
	return data, ok, nil
}

// LastError returns the error from the most recent write, or nil.
func (s *Saver) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	if err := s.write(context.Background()); err != nil {
		s.logger.Warn("autosave failed", "key", s.key, "error", err)
	}
}

func (s *Saver) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.persist(ctx)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

func (s *Saver) persist(ctx context.Context) error {
	if s.source == nil {
		return errors.New("autosave source not configured")
	}
	data, err := s.source.Snapshot(s.clock.Now())
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}
	if err := s.slot.Write(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing autosave slot: %w", err)
	}
	s.logger.Debug("autosaved project", "key", s.key, "bytes", len(data))
	return nil
}
