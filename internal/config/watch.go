// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIVE RELOAD
// =============================================================================

// WatchDebounce is how long Watch waits after the last change before
// reloading. Editors often write a file in several steps.
const WatchDebounce = 150 * time.Millisecond

// ReloadFunc receives either a freshly loaded config or the error that
// prevented loading it. On error the previous config remains in effect.
type ReloadFunc func(cfg *Config, err error)

// Watch blocks until ctx is done, calling fn each time the file at path
// changes. The parent directory is watched so that atomic renames are seen.
func Watch(ctx context.Context, path string, fn ReloadFunc) error {
	if fn == nil {
		return errors.New("config watch: nil reload func")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("config watch %s: %w", filepath.Dir(absPath), err)
	}

	name := filepath.Base(absPath)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("config watch: %w", err))

		case <-timer.C:
			cfg, err := LoadFromPath(absPath)
			fn(cfg, err)
		}
	}
}
