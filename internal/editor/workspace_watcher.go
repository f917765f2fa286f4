package editor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// saveDebounce collapses the burst of write events most editors produce for one save
const saveDebounce = 500 * time.Millisecond

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".vscode-test": true,
}

// WorkspaceWatcher publishes save notifications for files written under the
// watched workspace roots
type WorkspaceWatcher struct {
	publisher Publisher
	roots     []string
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	lastSave  map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
}

// NewWorkspaceWatcher creates a watcher for the given workspace roots
func NewWorkspaceWatcher(publisher Publisher, roots []string, logger *zap.Logger) *WorkspaceWatcher {
	return &WorkspaceWatcher{
		publisher: publisher,
		roots:     roots,
		logger:    logger,
		lastSave:  make(map[string]time.Time),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start begins watching every root recursively
func (ww *WorkspaceWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	ww.watcher = watcher

	for _, root := range ww.roots {
		if err := ww.addTree(root); err != nil {
			watcher.Close()
			return err
		}
	}

	ww.wg.Add(1)
	go ww.watchLoop()

	ww.logger.Info("Workspace watcher started",
		zap.Strings("roots", ww.roots),
	)
	return nil
}

// Stop stops watching
func (ww *WorkspaceWatcher) Stop() {
	ww.mu.Lock()
	select {
	case <-ww.stopChan:
		// Already closed
		ww.mu.Unlock()
		return
	default:
		close(ww.stopChan)
	}
	ww.mu.Unlock()

	if ww.watcher != nil {
		ww.watcher.Close()
	}
	ww.wg.Wait()
	ww.logger.Info("Workspace watcher stopped")
}

func (ww *WorkspaceWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := ww.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (ww *WorkspaceWatcher) watchLoop() {
	defer ww.wg.Done()

	for {
		select {
		case event, ok := <-ww.watcher.Events:
			if !ok {
				return
			}
			ww.handleEvent(event)
		case err, ok := <-ww.watcher.Errors:
			if !ok {
				return
			}
			ww.logger.Warn("Workspace watcher error", zap.Error(err))
		case <-ww.stopChan:
			return
		}
	}
}

func (ww *WorkspaceWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Temp files are often gone by the time we look
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) && !skippedDirs[info.Name()] {
			if err := ww.addTree(event.Name); err != nil {
				ww.logger.Warn("Failed to watch new directory",
					zap.String("path", event.Name),
					zap.Error(err),
				)
			}
		}
		return
	}

	now := ww.now()
	ww.mu.Lock()
	last, seen := ww.lastSave[event.Name]
	if seen && now.Sub(last) < saveDebounce {
		ww.mu.Unlock()
		return
	}
	ww.lastSave[event.Name] = now
	ww.mu.Unlock()

	ww.logger.Debug("File saved in workspace", zap.String("document", event.Name))
	ww.publisher.Publish(Notification{
		Kind:     NotifySave,
		Document: event.Name,
	})
}
