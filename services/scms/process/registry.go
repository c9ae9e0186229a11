// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package process launches shell scripts and keeps track of detached ones.
//
// Detached daemons run in their own session with output discarded. The
// Registry records each launch and reaps the child when it exits; it never
// signals or restarts anything. Only the most recent exited entries are
// kept.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry describes one detached launch.
type Entry struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Script    string     `json:"script"`
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	Exited    bool       `json:"exited"`
	ExitCode  *int       `json:"exit_code"`
	ExitedAt  *time.Time `json:"exited_at"`
}

// Command builds a shell invocation of script bound to ctx.
func Command(ctx context.Context, script string) *exec.Cmd {
	name, args := shell(script)
	return exec.CommandContext(ctx, name, args...)
}

// ExitCode extracts the exit status from a Wait/Run error.
//
// # Outputs
//
//   - int: 0 for nil, the process exit code for *exec.ExitError (-1 when
//     killed by a signal).
//   - bool: false when err is not an exit status (the process never ran).
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

// DefaultMaxExited is how many exited entries a Registry keeps.
const DefaultMaxExited = 100

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxExited bounds the exited entries kept for listing. Once the bound
// is passed the oldest exited entries are dropped. Running entries are
// always kept. n below 0 is treated as 0.
func WithMaxExited(n int) RegistryOption {
	return func(r *Registry) { r.maxExited = max(n, 0) }
}

// Registry records detached launches.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	logger    *slog.Logger
	now       func() time.Time
	maxExited int

	mu      sync.RWMutex
	entries []*Entry
	byID    map[string]*Entry
	exited  int

	wg sync.WaitGroup
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:    logger.With(slog.String("component", "process")),
		now:       time.Now,
		maxExited: DefaultMaxExited,
		byID:      make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Launch starts script detached on behalf of the command record commandID.
//
// The process gets a new session, no stdin and discarded output. It is not
// tied to any request context.
//
// # Outputs
//
//   - Entry: A copy of the recorded entry.
//   - error: Non-nil if the process could not be started.
func (r *Registry) Launch(commandID, script string) (Entry, error) {
	name, args := shell(script)
	cmd := exec.Command(name, args...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return Entry{}, fmt.Errorf("starting daemon %s: %w", commandID, err)
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Command:   commandID,
		Script:    script,
		PID:       cmd.Process.Pid,
		StartedAt: r.now(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.byID[entry.ID] = entry
	snapshot := *entry
	r.mu.Unlock()

	r.logger.Info("daemon started",
		slog.String("id", entry.ID),
		slog.String("command", commandID),
		slog.Int("pid", entry.PID))

	r.wg.Add(1)
	go r.reap(entry, cmd)

	return snapshot, nil
}

func (r *Registry) reap(entry *Entry, cmd *exec.Cmd) {
	defer r.wg.Done()
	err := cmd.Wait()
	code, ok := ExitCode(err)
	exitedAt := r.now()

	r.mu.Lock()
	entry.Exited = true
	entry.ExitedAt = &exitedAt
	if ok {
		entry.ExitCode = &code
	}
	r.exited++
	dropped := r.pruneLocked()
	r.mu.Unlock()

	if dropped > 0 {
		r.logger.Debug("exited daemons pruned", slog.Int("dropped", dropped))
	}

	r.logger.Info("daemon exited",
		slog.String("id", entry.ID),
		slog.String("command", entry.Command),
		slog.Int("pid", entry.PID),
		slog.Int("exit_code", code))
}

// pruneLocked drops the oldest exited entries beyond maxExited and returns
// how many were dropped. r.mu must be held.
func (r *Registry) pruneLocked() int {
	drop := r.exited - r.maxExited
	if drop <= 0 {
		return 0
	}
	dropped := 0
	kept := r.entries[:0]
	for _, e := range r.entries {
		if dropped < drop && e.Exited {
			delete(r.byID, e.ID)
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	r.exited -= dropped
	return dropped
}

// List returns copies of all entries in launch order.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out
}

// Get returns a copy of the entry with id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Running returns the number of launched daemons that have not exited.
func (r *Registry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries) - r.exited
}

// Wait blocks until every launched daemon has been reaped or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
