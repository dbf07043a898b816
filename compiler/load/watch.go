package load

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce sets how long Watch waits for writes to settle before
// reloading. Default is 100ms.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

// WithWatchLogger sets the logger used for watcher events.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = l
	}
}

// Watch loads the schema at path, calls fn with the result, and calls fn
// again every time a schema file under path changes. It blocks until ctx is
// done or the watcher fails.
func Watch(ctx context.Context, path string, fn func(*Schema, error), opts ...WatchOption) error {
	cfg := &watchConfig{debounce: 100 * time.Millisecond, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("load: watch: %w", err)
	}
	dir, file := path, ""
	if !info.IsDir() {
		dir, file = filepath.Dir(path), filepath.Clean(path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("load: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("load: watch %s: %w", dir, err)
	}
	fn(Load(path))

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, file) {
				continue
			}
			cfg.logger.Debug("schema file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(cfg.debounce)
			} else {
				timer.Reset(cfg.debounce)
			}
			trigger = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.logger.Warn("schema watcher error", "error", err)
		case <-trigger:
			trigger = nil
			fn(Load(path))
		}
	}
}

func relevant(ev fsnotify.Event, file string) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	if file != "" {
		return filepath.Clean(ev.Name) == file
	}
	return IsSchemaFile(ev.Name)
}
