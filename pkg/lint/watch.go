package lint

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/workspace"
)

// WatchConfig holds configuration for watch mode
type WatchConfig struct {
	IgnoreDirs []string
	Debounce   time.Duration
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() WatchConfig {
	return WatchConfig{
		IgnoreDirs: []string{".git", "node_modules"},
		Debounce:   300 * time.Millisecond,
	}
}

// Watch lints the workspace once, then again after every burst of file
// changes below layout.Root, until ctx is done. onRun receives each result.
func Watch(ctx context.Context, layout workspace.Layout, cfg WatchConfig, onRun func(*Report, error)) error {
	if cfg.Debounce < 0 {
		return errors.Errorf("debounce time cannot be negative: %s", cfg.Debounce)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := addDirs(watcher, layout.Root, cfg.IgnoreDirs); err != nil {
		return errors.Wrap(err, "failed to watch directories")
	}

	log := logger.G(ctx).WithField("root", layout.Root)
	log.Debug("file watcher initialized")
	onRun(Run(ctx, layout))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignored(event.Name, cfg.IgnoreDirs) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDirs(watcher, event.Name, cfg.IgnoreDirs); err != nil {
						log.WithError(err).WithField("dir", event.Name).Warn("failed to watch new directory")
					}
				}
			}
			log.WithField("file", event.Name).WithField("op", event.Op.String()).Debug("change detected")

			if timer == nil {
				timer = time.NewTimer(cfg.Debounce)
			} else {
				timer.Reset(cfg.Debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("error watching files")
		case <-fire:
			fire = nil
			onRun(Run(ctx, layout))
		}
	}
}

func addDirs(watcher *fsnotify.Watcher, root string, ignore []string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(ignore, d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func ignored(path string, ignore []string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if slices.Contains(ignore, part) {
			return true
		}
	}
	return false
}
