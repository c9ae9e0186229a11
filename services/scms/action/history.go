// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package action

import (
	"sync"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// DefaultHistorySize is the number of results kept per record.
const DefaultHistorySize = 100

// History keeps the most recent action results per record, in memory only.
//
// # Thread Safety
//
// Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]datatypes.ActionResult
}

// NewHistory returns a history keeping at most limit results per record.
// A limit of 0 disables recording.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit, entries: make(map[string][]datatypes.ActionResult)}
}

// Append records result for id, evicting the oldest entries past the limit.
func (h *History) Append(id string, result datatypes.ActionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.limit == 0 {
		return
	}
	list := append(h.entries[id], result)
	if len(list) > h.limit {
		list = append([]datatypes.ActionResult(nil), list[len(list)-h.limit:]...)
	}
	h.entries[id] = list
}

// Get returns a copy of the results for id, oldest first. Never nil.
func (h *History) Get(id string) []datatypes.ActionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]datatypes.ActionResult, len(h.entries[id]))
	copy(out, h.entries[id])
	return out
}

// SetLimit changes the per-record limit and trims existing lists.
func (h *History) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.limit = limit
	for id, list := range h.entries {
		if len(list) > limit {
			h.entries[id] = append([]datatypes.ActionResult(nil), list[len(list)-limit:]...)
		}
	}
}

// Limit returns the per-record limit.
func (h *History) Limit() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.limit
}
