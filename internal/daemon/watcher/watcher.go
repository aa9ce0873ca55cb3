// Package watcher reloads host settings when configuration files change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/logging"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 100 * time.Millisecond

// ConfigWatcher watches configuration directories and calls onReload with
// the changed file once a burst of writes settles.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(file string)

	// Maps symlink targets back to the link path in a watched directory.
	targetToLink map[string]string

	mu      sync.Mutex
	timer   *time.Timer
	pending string
}

// New watches every directory in dirs. Missing directories are skipped;
// at least one must be watchable.
func New(dirs []string, debounce time.Duration, onReload func(file string)) (*ConfigWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &ConfigWatcher{
		watcher:      fsw,
		debounce:     debounce,
		logger:       logging.NewLogger("config-watcher"),
		onReload:     onReload,
		targetToLink: make(map[string]string),
	}

	watched := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" || watched[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.WithError(err).WithField("dir", dir).Debug("Skipping config directory")
			continue
		}
		watched[dir] = true
		w.watchLinkTargets(dir, watched)
	}
	if len(watched) == 0 {
		fsw.Close()
		return nil, errors.New(errors.ErrCodeConfigNotFound, "no config directory to watch")
	}
	return w, nil
}

// watchLinkTargets adds the directories of symlinked config files in dir,
// since fsnotify does not follow links.
func (w *ConfigWatcher) watchLinkTargets(dir string, watched map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !config.IsConfigFile(entry.Name()) || entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		link := filepath.Join(dir, entry.Name())
		target, err := filepath.EvalSymlinks(link)
		if err != nil {
			w.logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
			continue
		}
		w.targetToLink[target] = link

		targetDir := filepath.Dir(target)
		if watched[targetDir] {
			continue
		}
		if err := w.watcher.Add(targetDir); err != nil {
			w.logger.WithError(err).Warnf("Failed to watch symlink target dir %s", targetDir)
			continue
		}
		watched[targetDir] = true
	}
}

// Run processes events until ctx is canceled.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			file := event.Name
			if link, ok := w.targetToLink[file]; ok {
				file = link
			}
			if !config.IsConfigFile(filepath.Base(file)) {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			w.schedule(file)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

// schedule restarts the debounce timer so only the last write of a burst
// triggers a reload.
func (w *ConfigWatcher) schedule(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = file
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *ConfigWatcher) fire() {
	w.mu.Lock()
	file := w.pending
	w.pending = ""
	w.mu.Unlock()
	if file == "" {
		return
	}
	w.logger.Infof("Config changed: %s", filepath.Base(file))
	if w.onReload != nil {
		w.onReload(file)
	}
}

// Close stops the watcher and any pending reload.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = ""
	w.mu.Unlock()
	return w.watcher.Close()
}
