// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package settings

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// ChangeFunc is called after a successful reload with the previous and new
// settings.
type ChangeFunc func(old, new *Settings)

// Store holds the current settings and reloads them from Paths.
//
// # Thread Safety
//
// Safe for concurrent use. Current never blocks.
type Store struct {
	paths   Paths
	current atomic.Pointer[Settings]
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []ChangeFunc
}

// NewStore loads the settings once and returns a Store holding them.
func NewStore(paths Paths, logger *slog.Logger) (*Store, error) {
	s, err := Load(paths)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	st := &Store{paths: paths, logger: logger.With(slog.String("component", "settings"))}
	st.current.Store(s)
	return st, nil
}

// Current returns the current settings. Callers must not modify the result.
func (st *Store) Current() *Settings {
	return st.current.Load()
}

// Paths returns the sources the store loads from.
func (st *Store) Paths() Paths {
	return st.paths
}

// OnChange registers fn to run after every successful Reload.
func (st *Store) OnChange(fn ChangeFunc) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}

// Reload re-reads the sources. On error the current settings are kept.
func (st *Store) Reload() error {
	next, err := Load(st.paths)
	if err != nil {
		st.logger.Error("settings reload failed, keeping current settings", slog.String("error", err.Error()))
		return err
	}

	prev := st.current.Swap(next)
	if restart := RestartRequired(prev, next); len(restart) > 0 {
		st.logger.Warn("changed settings take effect after restart", slog.Any("keys", restart))
	}

	st.mu.Lock()
	listeners := append([]ChangeFunc(nil), st.listeners...)
	st.mu.Unlock()
	for _, fn := range listeners {
		fn(prev, next)
	}
	return nil
}

// RestartRequired lists changed keys that are only read at startup.
func RestartRequired(old, next *Settings) []string {
	var keys []string
	if old.Host != next.Host {
		keys = append(keys, "host")
	}
	if old.Port != next.Port {
		keys = append(keys, "port")
	}
	if old.Workers != next.Workers {
		keys = append(keys, "workers")
	}
	if old.Reload != next.Reload {
		keys = append(keys, "reload")
	}
	if old.LogDir != next.LogDir {
		keys = append(keys, "log_dir")
	}
	if old.Tracing != next.Tracing {
		keys = append(keys, "tracing")
	}
	if old.Stores != next.Stores {
		keys = append(keys, "stores")
	}
	return keys
}
