// Package watch notices edits to the served target after it was
// instrumented. The served page is a snapshot, so edits are only reported.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	hlog "github.com/colinhebe/htmlserve/internal/log"
)

// Watcher reports the first on-disk change to one file.
type Watcher struct {
	path     string
	logger   *zap.Logger
	onChange func(path string)
	fs       *fsnotify.Watcher
}

// New starts watching the directory holding path. Editors often replace a
// file by renaming over it, which a watch on the file itself would lose.
// onChange, if non-nil, is called once on the first change.
func New(path string, logger *zap.Logger, onChange func(path string)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: adding %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{path: abs, logger: logger, onChange: onChange, fs: fw}, nil
}

// Run blocks until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	warned := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if warned || !w.relevant(event) {
				continue
			}
			warned = true
			w.logger.Warn("target changed on disk; the page in the browser is not reloaded",
				hlog.Event(hlog.EventTargetModified),
				zap.String("path", w.path),
				zap.String("op", event.Op.String()))
			if w.onChange != nil {
				w.onChange(w.path)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
