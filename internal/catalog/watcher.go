package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher monitors a catalog table file and reloads it on change.
// Reload failures keep the previously installed tables.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	catalog  *Catalog
	loader   *Loader
	logger   *zap.Logger
	debounce time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	isWatching bool
	stopCh     chan struct{}
}

// NewFileWatcher creates a watcher for a catalog table file
func NewFileWatcher(path string, cat *Catalog, loader *Loader, logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		path:     path,
		catalog:  cat,
		loader:   loader,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching the table file until the context is cancelled or
// Stop is called.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.isWatching {
		fw.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	fw.isWatching = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.path); err != nil {
		return fmt.Errorf("watch %s: %w", fw.path, err)
	}

	go fw.loop(ctx)
	return nil
}

func (fw *FileWatcher) loop(ctx context.Context) {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				fw.scheduleReload()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("catalog watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		}
	}
}

// scheduleReload debounces bursts of write events into a single reload
func (fw *FileWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.reload)
}

func (fw *FileWatcher) reload() {
	tables, err := fw.loader.LoadFromFile(fw.path)
	if err != nil {
		fw.logger.Warn("catalog reload failed, keeping current tables",
			zap.String("file", fw.path),
			zap.Error(err),
		)
		return
	}
	fw.catalog.Replace(*tables)
}

// Stop stops the watcher
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.isWatching {
		return nil
	}
	fw.isWatching = false
	close(fw.stopCh)
	return fw.watcher.Close()
}
