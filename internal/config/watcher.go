package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write to the settings
// file before it is re-read. Editors often save in several steps.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads s whenever its settings file is created, written or
// replaced, until ctx is cancelled. The parent directory is watched so
// atomic-rename saves are seen. No reload runs after Watch returns.
func Watch(ctx context.Context, s *Store, debounce time.Duration, logf func(string, ...interface{})) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var mu, reloadMu sync.Mutex
	var pending *time.Timer
	var stopped bool
	reload := func() {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		if stopped {
			return
		}

		changes, err := s.Reload()
		if err != nil {
			if logf != nil {
				logf("Settings reload failed: %v", err)
			}
			return
		}
		if logf != nil && len(changes) > 0 {
			logf("Settings reloaded: %d key(s) changed", len(changes))
		}
	}

	// A timer that already fired may be waiting on reloadMu; stopped makes it
	// a no-op, and taking the lock waits out a reload in progress.
	defer func() {
		mu.Lock()
		if pending != nil {
			pending.Stop()
		}
		mu.Unlock()

		reloadMu.Lock()
		stopped = true
		reloadMu.Unlock()
	}()

	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != s.Path() {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			mu.Lock()
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logf != nil {
				logf("Settings watcher error: %v", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}
