package cpy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
	"github.com/fsnotify/fsnotify"
)

var (
	// ErrWatchStream is returned when trying to watch a standard stream.
	ErrWatchStream = errors.New("cpy: cannot watch a standard stream")
	// ErrWatcher is returned when the file system watcher cannot be set up.
	ErrWatcher = errors.New("cpy: cannot watch source")
)

// CopyFunc is called by Watch after every copy.
// The report is nil if the copy could not be started.
type CopyFunc func(report *Report, err error)

// Watch copies the source file to the destination file and then
// copies it again every time the source is created or written.
// Changes are debounced as configured by the Watch section of the configuration.
//
// A failed copy does not stop the watch: it is passed to onCopy, which may be nil.
// Watch returns when the context is done.
func Watch(ctx context.Context, src, dst string, cfg *Config, onCopy CopyFunc) error {
	if src == StdStream || dst == StdStream {
		return ErrWatchStream
	}

	if cfg == nil {
		cfg = NewConfig()
	}

	w := newWatcher(src, dst, cfg, onCopy)
	if err := w.init(); err != nil {
		return err
	}
	defer w.close()

	return w.run(ctx)
}

type watcher struct {
	tel *internal.Telemetry

	cfg *Config

	src string
	dst string

	onCopy CopyFunc

	fsWatcher *fsnotify.Watcher
}

func newWatcher(src, dst string, cfg *Config, onCopy CopyFunc) *watcher {
	return &watcher{
		tel: internal.NewTelemetry("pipeline", "watch"),

		cfg: cfg,

		src: filepath.Clean(src),
		dst: filepath.Clean(dst),

		onCopy: onCopy,
	}
}

func (w *watcher) init() error {
	if err := config.NewValidator(w.tel).Validate(w.cfg); err != nil {
		return err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatcher, err)
	}

	// Editors often replace the file instead of writing it,
	// so the parent directory is watched
	dir := filepath.Dir(w.src)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("%w: %w", ErrWatcher, err)
	}

	w.fsWatcher = fsWatcher

	w.tel.LogInfo("watching source", "path", w.src, "debounce", w.cfg.Watch.Debounce)

	return nil
}

func (w *watcher) copy(ctx context.Context) {
	report, err := Copy(ctx, w.src, w.dst, w.cfg)
	if err != nil {
		w.tel.LogError("failed to copy source", err, "path", w.src)
	}

	if w.onCopy != nil {
		w.onCopy(report, err)
	}
}

func (w *watcher) isSourceEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.src {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *watcher) run(ctx context.Context) error {
	// The watcher does not fire events for the existing file
	w.copy(ctx)

	debounce := time.NewTimer(w.cfg.Watch.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}

			if !w.isSourceEvent(event) {
				continue
			}

			if w.tel.DebugEnabled() {
				w.tel.LogDebug("source changed", "op", event.Op.String())
			}

			debounce.Reset(w.cfg.Watch.Debounce)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}

			w.tel.LogError("watcher error", err)

		case <-debounce.C:
			w.copy(ctx)
		}
	}
}

func (w *watcher) close() {
	if err := w.fsWatcher.Close(); err != nil {
		w.tel.LogError("failed to close watcher", err)
	}

	w.tel.Close()
}
