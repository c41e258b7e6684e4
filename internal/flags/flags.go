// Package flags provides a JSON-file-backed feature-flag store with hot
// reload. The autosave gate ("autosave_enabled") lives here, so draft saving
// can be switched off in production without a restart.
package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inkwell-app/inkwell/internal/logger"
)

// AutosaveEnabled is the flag consulted by the editing-session gate.
const AutosaveEnabled = "autosave_enabled"

// Store holds the current flag values.
type Store struct {
	mu     sync.RWMutex
	path   string
	dir    string
	base   string
	values map[string]bool
}

// New creates a store backed by the JSON file at path and loads it once.
// A missing file is not an error: all lookups fall back to their defaults
// until the file appears.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("flag file path is required")
	}

	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}

	s := &Store{
		path:   path,
		dir:    dir,
		base:   filepath.Base(path),
		values: map[string]bool{},
	}
	if err := s.reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Enabled returns the flag value, or def when the flag is not set.
func (s *Store) Enabled(name string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[name]; ok {
		return v
	}
	return def
}

func (s *Store) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read flag file: %w", err)
	}

	var values map[string]bool
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("decode flag file: %w", err)
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Watch reloads the flag file when it changes on disk. It watches the parent
// directory (not the file) so atomic replace sequences (temp+rename) are
// still observed. Events are filtered by basename and debounced to avoid
// double reloads on write+chmod/rename cycles. Cancel ctx to stop the
// goroutine and close the watcher cleanly.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	onChange := func() {
		if err := s.reload(); err != nil {
			logger.WithComponent("flags").Warnf("flag reload failed, keeping previous values: %v", err)
			return
		}
		logger.WithComponent("flags").Info("feature flags reloaded")
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, onChange)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != s.base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("flags").Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
