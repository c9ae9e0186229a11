// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// Sentinel errors for the record store. Match with errors.Is.
var (
	// ErrNotFound indicates a missing backing file, record id or target file.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRecord indicates a record failed its schema.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidDocument indicates a backing file could not be parsed.
	ErrInvalidDocument = errors.New("invalid document")
)

// NotFoundError reports a missing file or record.
type NotFoundError struct {
	// Label is the singular category label for records ("chain"), empty for files.
	Label string

	// Name is the record id or the file path.
	Name string

	// File is true when Name is a path.
	File bool

	// Message replaces the generated message when set.
	Message string
}

// FileNotFound returns a NotFoundError for path.
func FileNotFound(path string) *NotFoundError {
	return &NotFoundError{Name: path, File: true}
}

// RecordNotFound returns a NotFoundError for a record id of the given category.
func RecordNotFound(category datatypes.Category, id string) *NotFoundError {
	return &NotFoundError{Label: category.Label(), Name: id}
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.File {
		return fmt.Sprintf("File %s not found", e.Name)
	}
	return fmt.Sprintf("%s %s not found", capitalize(e.Label), e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports records that failed their schema.
//
// Returned by Store.Get for a single invalid record and by Store.Load when
// one or more records of the document are invalid.
type ValidationError struct {
	// Path is the backing document.
	Path string

	// Label is the singular category label.
	Label string

	// Fields lists every failed check; FieldError.Record names the record.
	Fields []datatypes.FieldError
}

func (e *ValidationError) Error() string {
	records := make([]string, 0)
	seen := make(map[string]bool)
	for _, f := range e.Fields {
		if !seen[f.Record] {
			seen[f.Record] = true
			records = append(records, f.Record)
		}
	}
	if len(records) == 1 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Message)
		}
		return fmt.Sprintf("%s %s is invalid: %s", e.Label, records[0], strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("%d invalid %s record(s) in %s: %s",
		len(records), e.Label, e.Path, strings.Join(records, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }

// DocumentError reports a backing file that is not a YAML mapping.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("invalid document %s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func (e *DocumentError) Is(target error) bool { return target == ErrInvalidDocument }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
