package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/logger"
)

// DebounceInterval coalesces bursts of filesystem events into one signal.
var DebounceInterval = 500 * time.Millisecond

// Watch signals whenever files below the root may have changed.
// New directories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrAdapterClosed
	}
	c.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.watches = append(c.watches, cancel)
	c.mu.Unlock()

	changes := make(chan struct{}, 1)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	defer close(changes)
	defer watcher.Close()

	timer := time.NewTimer(DebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if c.handleEvent(watcher, event) && !pending {
				pending = true
				timer.Reset(DebounceInterval)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("source %s: watch error: %v", c.source, err)
		case <-timer.C:
			pending = false
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

// handleEvent reports whether an event can affect the index. Directories
// created under the root are added to the watcher.
func (c *Connector) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	rel, err := filepath.Rel(c.rootPath, event.Name)
	if err != nil || isHidden(rel) {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := c.addTree(watcher, event.Name); err != nil {
				logger.Warn("source %s: %v", c.source, err)
			}
			return true
		}
		return c.allowed(rel)
	case event.Has(fsnotify.Write):
		return c.allowed(rel)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The path is gone, so a directory cannot be told apart from an
		// extensionless file.
		return c.allowed(rel) || filepath.Ext(rel) == ""
	default:
		return false
	}
}

// addTree watches dir and every non-hidden directory below it.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
