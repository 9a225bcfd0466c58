// Package host assembles a playable session from configuration: the level
// document, the save store and, optionally, a watcher that rebuilds the
// dungeon when the document changes.
package host

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/game"
	"github.com/amalg/go-dungeon/internal/ldtk"
	"github.com/amalg/go-dungeon/internal/save"
)

// Host owns a session and the resources it was built from.
type Host struct {
	Session *game.Session
	cfg     config.Config
	store   save.Store
	log     *zap.Logger
	watcher *ldtk.Watcher
	done    chan struct{}
}

// New loads and builds the dungeon and opens the save store. A document
// that does not build panics: there is no dungeon to fall back to.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Host, error) {
	if log == nil {
		log = zap.NewNop()
	}

	doc, err := ldtk.LoadOrEmbedded(cfg.Level.Path)
	if err != nil {
		return nil, err
	}
	d := dungeon.MustBuild(doc)
	log.Info("dungeon built", zap.String("path", cfg.Level.Path), zap.Int("levels", d.Len()))

	store, err := save.Open(ctx, cfg.Save, log)
	if err != nil {
		return nil, fmt.Errorf("open save store: %w", err)
	}

	return &Host{
		Session: game.NewSession(d, store, log),
		cfg:     cfg,
		store:   store,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Watch rebuilds the dungeon whenever the level file changes. It is a
// no-op when watching is off or the embedded document is in use. A
// rebuild that fails keeps the current dungeon.
func (h *Host) Watch() error {
	if !h.cfg.Level.Watch || h.cfg.Level.Path == "" {
		return nil
	}
	w, err := ldtk.NewWatcher(h.cfg.Level.Path)
	if err != nil {
		return fmt.Errorf("watch level document: %w", err)
	}
	h.watcher = w
	go h.watchLoop(w)
	h.log.Info("watching level document", zap.String("path", h.cfg.Level.Path))
	return nil
}

func (h *Host) watchLoop(w *ldtk.Watcher) {
	for {
		select {
		case <-h.done:
			return
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			h.rebuild(path)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.log.Warn("level watcher error", zap.Error(err))
		}
	}
}

// rebuild reloads the document at path into the session.
func (h *Host) rebuild(path string) {
	doc, err := ldtk.Load(path)
	if err != nil {
		h.log.Warn("level reload failed, keeping current dungeon", zap.Error(err))
		return
	}
	d, err := dungeon.Build(doc)
	if err != nil {
		h.log.Warn("level rebuild failed, keeping current dungeon", zap.Error(err))
		return
	}
	h.Session.Reload(d)
}

// Close stops the watcher and closes the save store.
func (h *Host) Close() error {
	select {
	case <-h.done:
		return nil
	default:
		close(h.done)
	}
	if h.watcher != nil {
		h.watcher.Close()
	}
	return h.store.Close()
}
