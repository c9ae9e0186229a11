// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers of the scms API.
//
// Every category is served by a Category[T] built around its record store.
// Categories with an action also carry an action.Runner and the Task that
// performs the side effect. Errors are written by respondError so all
// handlers share one error body and status mapping.
package handlers

import (
	"bytes"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/fileformat"
	"github.com/AleutianAI/scms/services/scms/store"
)

// =============================================================================
// Interfaces
// =============================================================================

// Records is the read side of a record store. *store.Store[T] implements it.
type Records[T any] interface {
	action.Getter[T]
	IDs() []string
	Has(id string) bool
	Path() string

	// View pins the current document so a listing never mixes two loads.
	View() store.View[T]
}

// OutputFunc resolves the response form of a record, e.g. a configuration
// with its file content attached.
type OutputFunc[T any] func(record T) (any, error)

// Payload describes the body of action requests.
type Payload int

const (
	// PayloadNone ignores the body. Bulk requests may omit it to run every
	// record.
	PayloadNone Payload = iota

	// PayloadRequired makes the body the task argument.
	PayloadRequired
)

// =============================================================================
// Category
// =============================================================================

// CategoryConfig assembles a Category.
type CategoryConfig[T any] struct {
	Category datatypes.Category
	Records  Records[T]

	// Output defaults to the record itself.
	Output OutputFunc[T]

	// Runner and Task are nil for read-only categories.
	Runner  *action.Runner[T]
	Task    action.Task[T]
	Payload Payload
}

// Category serves one record category.
type Category[T any] struct {
	name    datatypes.Category
	records Records[T]
	output  OutputFunc[T]
	runner  *action.Runner[T]
	task    action.Task[T]
	payload Payload
}

// NewCategory creates the handlers for one category.
func NewCategory[T any](cfg CategoryConfig[T]) *Category[T] {
	if cfg.Output == nil {
		cfg.Output = func(record T) (any, error) { return record, nil }
	}
	return &Category[T]{
		name:    cfg.Category,
		records: cfg.Records,
		output:  cfg.Output,
		runner:  cfg.Runner,
		task:    cfg.Task,
		payload: cfg.Payload,
	}
}

// Name returns the category served.
func (h *Category[T]) Name() datatypes.Category { return h.name }

// Actionable reports whether the category has POST routes.
func (h *Category[T]) Actionable() bool { return h.runner != nil && h.task != nil }

// Summary describes the category for the info endpoint.
func (h *Category[T]) Summary() datatypes.CategoryInfo {
	return datatypes.CategoryInfo{Path: h.records.Path(), Records: len(h.records.IDs())}
}

// List handles GET /C. The response maps every current id to its output
// record, in the order of the backing file.
func (h *Category[T]) List(c *gin.Context) {
	view := h.records.View()
	ids := view.IDs()
	out := NewObject(len(ids))
	for _, id := range ids {
		v, err := h.resolve(view, id)
		if err != nil {
			respondError(c, err)
			return
		}
		out.Set(id, v)
	}
	c.JSON(http.StatusOK, out)
}

// Get handles GET /C/:id.
func (h *Category[T]) Get(c *gin.Context) {
	v, err := h.resolve(h.records, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Run handles POST /C/:id.
func (h *Category[T]) Run(c *gin.Context) {
	var args any
	if h.payload == PayloadRequired {
		v, present, err := readBody(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if !present {
			respondError(c, invalidRequest("request body is required"))
			return
		}
		args = v
	}
	h.run(c, c.Param("id"), args)
}

// RunWithPathValue handles POST /C/:id/:value. The value segment is
// decoded as a YAML scalar, so "5" is a number and "true" a boolean.
func (h *Category[T]) RunWithPathValue(c *gin.Context) {
	var value any
	if err := yaml.Unmarshal([]byte(c.Param("value")), &value); err != nil {
		respondError(c, invalidRequest("value %q: %v", c.Param("value"), err))
		return
	}
	h.run(c, c.Param("id"), fileformat.Normalize(value))
}

// RunAll handles POST /C.
//
// # Description
//
// The body maps record ids to payloads. Every id is checked before any
// action runs: an unknown or invalid record fails the whole request. The
// actions then run one after another in file order, and the response maps
// each id to its action result. For PayloadNone categories an empty body
// selects every record.
func (h *Category[T]) RunAll(c *gin.Context) {
	body, present, err := readBody(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var payloads map[string]any
	if present && body != nil {
		m, ok := body.(map[string]any)
		if !ok {
			respondError(c, invalidRequest("request body must be an object mapping %s ids to payloads", h.name.Label()))
			return
		}
		payloads = m
	} else if h.payload == PayloadRequired {
		respondError(c, invalidRequest("request body is required"))
		return
	}

	ids, err := h.selectIDs(payloads)
	if err != nil {
		respondError(c, err)
		return
	}

	out := NewObject(len(ids))
	for _, id := range ids {
		var args any
		if h.payload == PayloadRequired {
			args = payloads[id]
		}
		result, err := h.runner.Run(c.Request.Context(), id, h.task, args)
		if err != nil {
			respondError(c, err)
			return
		}
		out.Set(id, result)
	}
	c.JSON(http.StatusOK, out)
}

// History handles GET /C/:id/history.
func (h *Category[T]) History(c *gin.Context) {
	id := c.Param("id")
	if !h.records.Has(id) {
		respondError(c, store.RecordNotFound(h.name, id))
		return
	}
	c.JSON(http.StatusOK, h.runner.History().Get(id))
}

func (h *Category[T]) run(c *gin.Context, id string, args any) {
	result, err := h.runner.Run(c.Request.Context(), id, h.task, args)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Category[T]) resolve(records action.Getter[T], id string) (any, error) {
	record, err := records.Get(id)
	if err != nil {
		return nil, err
	}
	return h.output(record)
}

// selectIDs returns the ids to run in file order. A nil payloads map
// selects every id. All checks read the same document.
func (h *Category[T]) selectIDs(payloads map[string]any) ([]string, error) {
	view := h.records.View()
	all := view.IDs()
	if payloads == nil {
		for _, id := range all {
			if _, err := view.Get(id); err != nil {
				return nil, err
			}
		}
		return all, nil
	}

	unknown := make([]string, 0)
	for id := range payloads {
		if !view.Has(id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, store.RecordNotFound(h.name, unknown[0])
	}

	ids := make([]string, 0, len(payloads))
	for _, id := range all {
		if _, ok := payloads[id]; !ok {
			continue
		}
		if _, err := view.Get(id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readBody decodes a JSON request body. present is false for an empty
// body. Numbers decode as json.Number.
func readBody(c *gin.Context) (value any, present bool, err error) {
	if c.Request.Body == nil {
		return nil, false, nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, false, invalidRequest("reading body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}
	v, err := fileformat.Decode(data, datatypes.FormatJSON)
	if err != nil {
		return nil, false, invalidRequest("body is not valid JSON: %v", err)
	}
	return v, true, nil
}
