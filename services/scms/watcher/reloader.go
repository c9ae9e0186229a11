// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ReloadFunc reloads one backing file. Errors are logged, never fatal.
type ReloadFunc func() error

// Reloader calls the registered ReloadFunc whenever its file changes.
//
// # Thread Safety
//
// Register may be called before or after Start. Reload functions for one
// batch run sequentially on the watcher goroutine.
type Reloader struct {
	fw     *FileWatcher
	logger *slog.Logger

	mu      sync.RWMutex
	targets map[string]target
}

type target struct {
	name   string
	reload ReloadFunc
}

// NewReloader creates a reloader. opts may be nil.
func NewReloader(opts *FileWatcherOptions) (*Reloader, error) {
	r := &Reloader{targets: make(map[string]target)}
	fw, err := NewFileWatcher(r.handle, opts)
	if err != nil {
		return nil, err
	}
	r.fw = fw
	r.logger = fw.logger.With(slog.String("role", "reloader"))
	return r, nil
}

// Register watches path and calls fn after it changes.
//
// # Inputs
//
//   - name: Label used in logs ("chains", "settings").
//   - path: File to watch. Its directory must exist.
//   - fn: Reload function.
func (r *Reloader) Register(name, path string, fn ReloadFunc) error {
	abs, err := r.fw.Add(path)
	if err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}
	r.mu.Lock()
	r.targets[abs] = target{name: name, reload: fn}
	r.mu.Unlock()

	r.logger.Debug("watching file", slog.String("name", name), slog.String("path", abs))
	return nil
}

// Start begins watching. See FileWatcher.Start.
func (r *Reloader) Start(ctx context.Context) error {
	return r.fw.Start(ctx)
}

// Stop stops watching. Safe to call more than once.
func (r *Reloader) Stop() {
	r.fw.Stop()
}

// IsWatching reports whether the reloader is active.
func (r *Reloader) IsWatching() bool {
	return r.fw.IsWatching()
}

func (r *Reloader) handle(changes []FileChange) {
	for _, change := range changes {
		r.mu.RLock()
		t, ok := r.targets[change.Path]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		logger := r.logger.With(
			slog.String("name", t.name),
			slog.String("path", change.Path),
			slog.String("op", change.Op.String()),
		)
		if err := t.reload(); err != nil {
			logger.Error("reload reported an error", slog.String("error", err.Error()))
			continue
		}
		logger.Info("reloaded")
	}
}
