// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// HOT RELOAD
// =============================================================================

// DefaultWatchDebounce collapses the bursts of events editors produce on save.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// new config to onChange. Invalid files are logged and skipped so the
// running config stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file itself, since
// editors commonly replace the file by rename.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("CONFIG_WATCH_ERROR | path=%s error=%v", absPath, err)

		case <-timer.C:
			cfg, err := LoadFromPath(absPath)
			if err != nil {
				log.Printf("CONFIG_RELOAD_FAILED | path=%s error=%v", absPath, err)
				continue
			}
			log.Printf("CONFIG_RELOADED | path=%s", absPath)
			onChange(cfg)
		}
	}
}
