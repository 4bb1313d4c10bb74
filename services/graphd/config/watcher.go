// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events editors emit for one save.
const reloadDebounce = 100 * time.Millisecond

// ReloadFunc receives each reloaded configuration, or the error that
// prevented loading it. The previous configuration stays in effect on
// error.
type ReloadFunc func(cfg Config, err error)

// Watch reloads the file at path whenever it changes.
//
// Description:
//
//	Watches the file's directory rather than the file itself so that
//	editors which save by rename-and-replace keep being observed. Events
//	within reloadDebounce of each other trigger a single reload through
//	Load. Blocks until ctx is cancelled.
//
// Inputs:
//
//	ctx - Stops the watcher when cancelled.
//	path - The config file passed to Load.
//	onChange - Called from the watcher goroutine after each reload.
//
// Outputs:
//
//	error - Non-nil if the watch could not be set up. Nil after ctx ends.
func Watch(ctx context.Context, path string, onChange ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(reloadDebounce)
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
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(Config{}, fmt.Errorf("config watcher: %w", err))

		case <-timer.C:
			cfg, err := Load(abs)
			onChange(cfg, err)
		}
	}
}
