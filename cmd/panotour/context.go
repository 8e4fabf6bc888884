package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rpggio/panotour/internal/blobstore"
	"github.com/rpggio/panotour/internal/config"
	"github.com/rpggio/panotour/internal/domain/editor"
	"github.com/rpggio/panotour/internal/sqlite"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// workspace is an open editing session with everything it holds.
type workspace struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlite.DB
	lock    *flock.Flock
	store   *blobstore.Store
	session *editor.Session
	closers []io.Closer
}

// openWorkspace locks the data directory, opens storage and restores the
// autosaved project. logOut receives logs unless a log file is configured.
func (c *commandContext) openWorkspace(ctx context.Context, logOut io.Writer) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	delay, err := cfg.AutosaveDelay()
	if err != nil {
		return nil, err
	}

	w := &workspace{cfg: cfg}
	w.logger, err = w.newLogger(logOut)
	if err != nil {
		return nil, err
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		w.closeAll()
		return nil, fmt.Errorf("prepare database path: %w", err)
	}

	lockPath := cfg.DB.Path + ".lock"
	if cfg.DB.Path == ":memory:" {
		lockPath = filepath.Join(os.TempDir(), fmt.Sprintf("panotour-%d.lock", os.Getpid()))
	}
	w.lock = flock.New(lockPath)
	ok, err := w.lock.TryLock()
	if err != nil {
		w.closeAll()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		w.closeAll()
		return nil, fmt.Errorf("another panotour process is using %s", cfg.DB.Path)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		w.closeAll()
		return nil, err
	}
	w.db = db
	if err := db.RunMigrations(); err != nil {
		w.closeAll()
		return nil, err
	}

	if cfg.Storage.Disabled {
		w.store = blobstore.Unavailable("disabled by configuration", w.logger)
	} else {
		w.store = blobstore.New(sqlite.NewBlobRepository(db).Opener(), blobstore.Options{Logger: w.logger})
	}

	w.session = editor.NewSession(w.store, sqlite.NewSlotRepository(db), editor.Options{
		Logger:        w.logger,
		AutosaveKey:   cfg.Autosave.Key,
		AutosaveDelay: delay,
		BundleLibDir:  cfg.Bundle.LibDir,
	})
	if err := w.session.Restore(ctx); err != nil {
		w.closeAll()
		return nil, fmt.Errorf("restore project: %w", err)
	}
	if w.session.MemoryOnly() {
		w.logger.Warn("image storage unavailable, images are kept inline in the autosave")
	}
	return w, nil
}

func (w *workspace) newLogger(fallback io.Writer) (*slog.Logger, error) {
	out := fallback
	if w.cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(w.cfg.Log.Path)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w.closers = append(w.closers, file)
		out = fileWriter
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLogLevel(w.cfg.Log.Level),
	})), nil
}

// Close flushes the autosave and releases every resource.
func (w *workspace) Close(ctx context.Context) error {
	var errs []error
	if w.session != nil {
		if err := w.session.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("save project: %w", err))
		}
	}
	w.closeAll()
	return errors.Join(errs...)
}

func (w *workspace) closeAll() {
	if w.db != nil {
		if err := w.db.Close(); err != nil && w.logger != nil {
			w.logger.Warn("failed to close database", "error", err)
		}
		w.db = nil
	}
	if w.lock != nil {
		_ = w.lock.Unlock()
		w.lock = nil
	}
	for _, c := range w.closers {
		_ = c.Close()
	}
	w.closers = nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
