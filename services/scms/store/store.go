// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store loads the per-category YAML documents into typed records.
//
// A Store holds exactly one parsed document, swapped atomically on every
// successful load. Its Registry tracks ids across loads to report what was
// added and removed. Records that
// fail their schema stay in the document with their field errors so that
// the rest of the category keeps working.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// =============================================================================
// Document
// =============================================================================

// Entry is one record of a loaded document.
type Entry[T any] struct {
	// Record is the decoded record. Zero value when decoding failed.
	Record T

	// Errors lists schema failures. Empty for a valid record.
	Errors []datatypes.FieldError
}

// Valid reports whether the entry passed its schema.
func (e Entry[T]) Valid() bool { return len(e.Errors) == 0 }

// Document is an immutable snapshot of a backing file.
type Document[T any] struct {
	// Keys lists record ids in file order.
	Keys []string

	// Entries maps record id to entry.
	Entries map[string]Entry[T]

	// LoadedAt is when the snapshot was installed.
	LoadedAt time.Time
}

// Invalid returns the field errors of every invalid entry, in file order.
func (d *Document[T]) Invalid() []datatypes.FieldError {
	var out []datatypes.FieldError
	for _, k := range d.Keys {
		out = append(out, d.Entries[k].Errors...)
	}
	return out
}

// =============================================================================
// Store
// =============================================================================

// Observer is notified after every load attempt.
//
// records is the number of ids in the installed document, or -1 when the
// load failed before a document could be installed.
type Observer interface {
	ObserveLoad(category datatypes.Category, records int, err error)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers a load observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithClock overrides time.Now for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Store is the record store for one category.
//
// # Thread Safety
//
// Safe for concurrent use. Readers see either the previous or the new
// document in full; callers that need several reads of the same document
// take a View. Loads are serialized.
type Store[T any] struct {
	category datatypes.Category
	path     string
	registry *Registry
	loadMu   sync.Mutex
	doc      atomic.Pointer[Document[T]]
	opts     options
}

// New creates a store for category backed by path. Call Load before use.
func New[T any](category datatypes.Category, path string, opts ...Option) *Store[T] {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(
		slog.String("component", "store"),
		slog.String("category", string(category)),
	)
	return &Store[T]{
		category: category,
		path:     path,
		registry: NewRegistry(),
		opts:     o,
	}
}

// Category returns the store's category.
func (s *Store[T]) Category() datatypes.Category { return s.category }

// Path returns the backing file path.
func (s *Store[T]) Path() string { return s.path }

// Snapshot returns the current document, or nil before the first load.
func (s *Store[T]) Snapshot() *Document[T] { return s.doc.Load() }

// Load reads, parses and validates the backing file and installs it.
//
// # Outputs
//
//   - error: *NotFoundError when the file is missing, *DocumentError when it
//     is not a YAML mapping; the previous document is kept in both cases.
//     *ValidationError when some records are invalid; the new document is
//     installed regardless.
func (s *Store[T]) Load() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	doc, err := s.parse()
	if err != nil {
		s.opts.logger.Error("store load failed, keeping previous document",
			slog.String("path", s.path), slog.String("error", err.Error()))
		s.observe(-1, err)
		return err
	}

	s.doc.Store(doc)
	added, removed := s.registry.Sync(doc.Keys)
	if len(added) > 0 || len(removed) > 0 {
		s.opts.logger.Info("store loaded",
			slog.String("path", s.path),
			slog.Int("records", len(doc.Keys)),
			slog.Any("added", added),
			slog.Any("removed", removed))
	} else {
		s.opts.logger.Debug("store loaded", slog.String("path", s.path), slog.Int("records", len(doc.Keys)))
	}

	var loadErr error
	if invalid := doc.Invalid(); len(invalid) > 0 {
		loadErr = &ValidationError{Path: s.path, Label: s.category.Label(), Fields: invalid}
		s.opts.logger.Warn("store has invalid records",
			slog.String("path", s.path), slog.String("error", loadErr.Error()))
	}
	s.observe(len(doc.Keys), loadErr)
	return loadErr
}

// Get returns the record for id in the current document.
//
// # Outputs
//
//   - error: *NotFoundError when id is not in the document, *ValidationError
//     when the record failed its schema.
func (s *Store[T]) Get(id string) (T, error) { return s.View().Get(id) }

// IDs returns the current ids in file order.
func (s *Store[T]) IDs() []string { return s.View().IDs() }

// Has reports whether id is in the current document.
func (s *Store[T]) Has(id string) bool { return s.View().Has(id) }

// View pins the current document. Reads through the view never mix two
// loads.
func (s *Store[T]) View() View[T] {
	return View[T]{doc: s.doc.Load(), path: s.path, category: s.category}
}

// View is a read-only handle on one installed document.
type View[T any] struct {
	doc      *Document[T]
	path     string
	category datatypes.Category
}

// IDs returns the ids of the document in file order.
func (v View[T]) IDs() []string {
	if v.doc == nil {
		return []string{}
	}
	out := make([]string, len(v.doc.Keys))
	copy(out, v.doc.Keys)
	return out
}

// Has reports whether id is in the document.
func (v View[T]) Has(id string) bool {
	if v.doc == nil {
		return false
	}
	_, ok := v.doc.Entries[id]
	return ok
}

// Get returns the record for id. Errors match Store.Get.
func (v View[T]) Get(id string) (T, error) {
	var zero T
	if v.doc == nil {
		return zero, RecordNotFound(v.category, id)
	}
	entry, ok := v.doc.Entries[id]
	if !ok {
		return zero, RecordNotFound(v.category, id)
	}
	if !entry.Valid() {
		return zero, &ValidationError{Path: v.path, Label: v.category.Label(), Fields: entry.Errors}
	}
	return entry.Record, nil
}

func (s *Store[T]) observe(records int, err error) {
	if s.opts.observer != nil {
		s.opts.observer.ObserveLoad(s.category, records, err)
	}
}

func (s *Store[T]) parse() (*Document[T], error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, FileNotFound(s.path)
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	doc := &Document[T]{
		Keys:     make([]string, 0),
		Entries:  make(map[string]Entry[T]),
		LoadedAt: s.opts.now(),
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &DocumentError{Path: s.path, Err: err}
	}

	mapping := &root
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		mapping = root.Content[0]
	}
	switch {
	case root.Kind == 0, root.Kind == yaml.DocumentNode && len(root.Content) == 0:
		// Empty or comment-only file.
		return doc, nil
	case mapping.Kind == yaml.ScalarNode && mapping.Tag == "!!null":
		return doc, nil
	case mapping.Kind != yaml.MappingNode:
		return nil, &DocumentError{
			Path: s.path,
			Err:  fmt.Errorf("line %d: top level must be a mapping of record ids", mapping.Line),
		}
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode, valueNode := mapping.Content[i], mapping.Content[i+1]
		id := keyNode.Value
		if keyNode.Kind != yaml.ScalarNode || id == "" {
			return nil, &DocumentError{
				Path: s.path,
				Err:  fmt.Errorf("line %d: record id must be a non-empty scalar", keyNode.Line),
			}
		}
		if _, dup := doc.Entries[id]; dup {
			return nil, &DocumentError{
				Path: s.path,
				Err:  fmt.Errorf("line %d: duplicate record id %q", keyNode.Line, id),
			}
		}

		var rec T
		var entry Entry[T]
		if err := valueNode.Decode(&rec); err != nil {
			entry.Errors = datatypes.FieldErrors(id, err)
		} else if err := datatypes.Validate(rec); err != nil {
			entry.Errors = datatypes.FieldErrors(id, err)
		} else {
			entry.Record = rec
		}

		doc.Keys = append(doc.Keys, id)
		doc.Entries[id] = entry
	}
	return doc, nil
}
