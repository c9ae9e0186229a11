// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// ActionResult is the normalized outcome of running a category task.
//
// # Fields
//
//   - Error: true when the task reported a return code greater than zero.
//   - Stdout, Stderr: output split on newlines, trimmed, empty lines dropped.
//     Never null in JSON.
//   - ReturnCode: the task's return code, 0 when the task reported none
//     (detached daemons, file writes).
//   - Start, End: wall-clock time around the task call.
type ActionResult struct {
	Error      bool      `json:"error"`
	Stdout     []string  `json:"stdout"`
	Stderr     []string  `json:"stderr"`
	ReturnCode int       `json:"returncode"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// Duration returns End - Start.
func (r ActionResult) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Details lists field-level schema failures (optional).
	Details []FieldError `json:"details,omitempty"`
}

// Error codes used in ErrorResponse.Code.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidRecord   = "INVALID_RECORD"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidDocument = "INVALID_DOCUMENT"
	CodeInternal        = "INTERNAL"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CategoryInfo summarizes one category in InfoResponse.
type CategoryInfo struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// InfoResponse is returned by GET /.
type InfoResponse struct {
	Title       string                    `json:"title"`
	Version     string                    `json:"version"`
	Description string                    `json:"description"`
	Categories  map[Category]CategoryInfo `json:"categories"`
}
