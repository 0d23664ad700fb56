// Package filewatcher provides file system monitoring adapters.
// Clean Architecture: Adapter implementing ports.SourceWatcher.
package filewatcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher watches the file behind a file-backed data source and
// signals when it is rewritten, so the index can refresh without waiting for
// the periodic interval.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// NewFSNotifyWatcher creates a watcher for the given data file.
func NewFSNotifyWatcher(path string) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifyWatcher{
		watcher: w,
		path:    filepath.Clean(path),
	}, nil
}

// Watch starts monitoring and emits one signal per change to the data file.
// The containing directory is watched so the file may be replaced by rename,
// the usual atomic-write pattern.
func (w *FSNotifyWatcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	signals := make(chan struct{}, 1)

	go func() {
		defer close(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Coalesce bursts: drop the signal if one is already pending.
				select {
				case signals <- struct{}{}:
				default:
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return signals, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}
