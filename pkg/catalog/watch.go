package catalog

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/logger"
)

// WatchConfig tunes the catalog watcher
type WatchConfig struct {
	// Debounce is how long to wait for further events before reloading
	Debounce time.Duration
	// Attempts is the number of reload attempts per change
	Attempts uint
	// RetryDelay is the initial delay between attempts
	RetryDelay time.Duration
}

// NewWatchConfig returns the default watcher settings
func NewWatchConfig() WatchConfig {
	return WatchConfig{
		Debounce:   250 * time.Millisecond,
		Attempts:   3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Watch reloads the store whenever the watched path changes, until ctx is
// cancelled. For a file source the parent directory is watched so that
// editors replacing the file by rename are seen; for a directory source the
// directory and its immediate skill directories are watched.
func Watch(ctx context.Context, store *Store, path string, config WatchConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}

	var match func(name string) bool
	if info.IsDir() {
		if err := addDirTree(watcher, path); err != nil {
			return err
		}
		match = func(string) bool { return true }
	} else {
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
		}
		abs, _ := filepath.Abs(path)
		match = func(name string) bool {
			candidate, _ := filepath.Abs(name)
			return candidate == abs
		}
	}

	log := logger.G(ctx).WithField("path", path)
	log.Info("watching skill catalog for changes")

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !match(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if info.IsDir() && event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			log.WithField("event", event.Op.String()).Debug("catalog change detected")
			if timer == nil {
				timer = time.NewTimer(config.Debounce)
			} else {
				timer.Reset(config.Debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("catalog watcher error")

		case <-fire:
			fire = nil
			reloadWithRetry(ctx, store, config)
		}
	}
}

func reloadWithRetry(ctx context.Context, store *Store, config WatchConfig) {
	err := retry.Do(
		func() error {
			_, err := store.Reload(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(config.Attempts),
		retry.Delay(config.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("catalog reload failed after retries")
		return
	}
	snap := store.Snapshot()
	logger.G(ctx).WithField("version", snap.Version()).
		WithField("skills", snap.Len()).
		Info("skill catalog reloaded")
}

func addDirTree(watcher *fsnotify.Watcher, root string) error {
	if err := watcher.Add(root); err != nil {
		return errors.Wrapf(err, "failed to watch %s", root)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", root)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(root, entry.Name())); err != nil {
				return errors.Wrapf(err, "failed to watch %s", entry.Name())
			}
		}
	}
	return nil
}
