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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Sync(t *testing.T) {
	r := NewRegistry()

	added, removed := r.Sync([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, added)
	assert.Empty(t, removed)
	assert.Equal(t, 3, r.Len())

	added, removed = r.Sync([]string{"c", "d", "a"})
	assert.Equal(t, []string{"d"}, added)
	assert.Equal(t, []string{"b"}, removed)
	assert.Equal(t, []string{"c", "d", "a"}, r.IDs())

	assert.True(t, r.Has("d"))
	assert.False(t, r.Has("b"))
}

func TestRegistry_SyncEmpty(t *testing.T) {
	r := NewRegistry()
	r.Sync([]string{"a"})

	added, removed := r.Sync(nil)
	assert.Empty(t, added)
	assert.Equal(t, []string{"a"}, removed)
	assert.Equal(t, 0, r.Len())
	assert.NotNil(t, r.IDs())
}

func TestRegistry_SyncDropsDuplicates(t *testing.T) {
	r := NewRegistry()
	r.Sync([]string{"a", "a", "b"})
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}

func TestRegistry_IDsIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Sync([]string{"a", "b"})
	ids := r.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, r.IDs())
}
