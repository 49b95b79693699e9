// Package watcher reports debounced changes of mesh files.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher watches files and directories and reports changed files in
// batches once no further change arrived for the debounce period.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	log      *zap.Logger
	debounce time.Duration
	filter   func(string) bool

	mu      sync.Mutex
	watched map[string]bool
	pending map[string]bool
	timer   *time.Timer
}

// NewFileWatcher creates a new file watcher. filter selects which changed
// paths are reported, nil reports all of them.
func NewFileWatcher(debounce time.Duration, filter func(string) bool, log *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	return &FileWatcher{
		watcher:  watcher,
		log:      log,
		debounce: debounce,
		filter:   filter,
		watched:  make(map[string]bool),
		pending:  make(map[string]bool),
	}, nil
}

// Add starts watching the given files and directories. Directories are
// watched with all their subdirectories.
func (fw *FileWatcher) Add(paths []string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", absPath, err)
		}
		if !info.IsDir() {
			if err := fw.add(absPath); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return fw.add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (fw *FileWatcher) add(path string) error {
	if fw.watched[path] {
		return nil
	}
	if err := fw.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	fw.watched[path] = true
	return nil
}

// Start delivers changes to onChange until ctx is done or the watcher is
// closed. onChange receives the changed paths sorted and is never called
// concurrently with itself.
func (fw *FileWatcher) Start(ctx context.Context, onChange func([]string)) {
	var serial sync.Mutex
	fire := func() {
		fw.mu.Lock()
		changed := make([]string, 0, len(fw.pending))
		for p := range fw.pending {
			changed = append(changed, p)
		}
		fw.pending = make(map[string]bool)
		fw.mu.Unlock()

		if len(changed) == 0 {
			return
		}
		sort.Strings(changed)
		serial.Lock()
		defer serial.Unlock()
		onChange(changed)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				fw.handleFileChange(event.Name, fire)

			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.log.Warn("watcher error", zap.Error(err))
			}
		}
	}()
}

// handleFileChange records a change and restarts the debounce timer
func (fw *FileWatcher) handleFileChange(path string, fire func()) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// new subdirectory
		if err := fw.add(path); err != nil {
			fw.log.Warn("failed to watch new directory", zap.String("dir", path), zap.Error(err))
		}
		return
	}
	if !fw.filter(path) {
		return
	}

	fw.log.Debug("file changed", zap.String("file", path))
	fw.pending[path] = true
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fire)
}

// Close stops the watcher
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()
	return fw.watcher.Close()
}

// RemoveAll removes all watched paths
func (fw *FileWatcher) RemoveAll() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for path := range fw.watched {
		if err := fw.watcher.Remove(path); err != nil {
			return err
		}
	}

	fw.watched = make(map[string]bool)
	fw.pending = make(map[string]bool)
	return nil
}
