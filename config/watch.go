package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the stored host each time the file at path is
// written, created or renamed into place, skipping blank contents and repeats
// of the last host seen. It watches the parent directory so editors that
// replace the file are still noticed. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(host string), logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("Watching host file", "path", path)

	last, _ := LoadHost(path)
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			host, err := LoadHost(path)
			if err != nil {
				if !errors.Is(err, ErrNoHost) {
					logger.Warn("Could not reload host", "error", err)
				}
				continue
			}
			if host == last {
				continue
			}
			last = host
			logger.Info("Host file changed", "host", host)
			onChange(host)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "error", err)
		}
	}
}
