package resource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch invalidates cached resources when their files change on disk. It
// watches Dir and its subdirectories until ctx is done. Only meaningful for
// loaders backed by the OS filesystem.
func (l *Loader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("resource: failed to create watcher: %w", err)
	}

	err = filepath.WalkDir(l.opts.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("resource: failed to watch %s: %w", l.opts.Dir, err)
	}

	go l.watch(ctx, w)
	return nil
}

func (l *Loader) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.Add(event.Name); err != nil {
						l.logger.Warn("resource watch failed", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if id, ok := l.resourceOf(event.Name); ok {
				l.Invalidate(id)
				l.logger.Debug("resource invalidated",
					zap.String("resource", id),
					zap.Stringer("op", event.Op))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("resource watcher error", zap.Error(err))
		}
	}
}
