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

import "sync"

// Registry is the ordered set of valid record ids for one category.
//
// It is rebuilt from the keys of every loaded document. Sync reports the
// difference to the previous load.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ids []string
	set map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{set: make(map[string]struct{})}
}

// Sync makes the registry match keys.
//
// # Inputs
//
//   - keys: The ids of the newly loaded document, in document order.
//
// # Outputs
//
//   - added: ids present in keys but not before, in keys order.
//   - removed: ids present before but not in keys, in previous order.
func (r *Registry) Sync(keys []string) (added, removed []string) {
	next := make(map[string]struct{}, len(keys))
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := next[k]; dup {
			continue
		}
		next[k] = struct{}{}
		ids = append(ids, k)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.ids {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	for _, id := range ids {
		if _, ok := r.set[id]; !ok {
			added = append(added, id)
		}
	}

	r.ids = ids
	r.set = next
	return added, removed
}

// Has reports whether id is currently valid.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.set[id]
	return ok
}

// IDs returns a copy of the valid ids in document order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of valid ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
