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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

func result(code int) datatypes.ActionResult {
	return datatypes.ActionResult{ReturnCode: code, Stdout: []string{}, Stderr: []string{}}
}

func returnCodes(list []datatypes.ActionResult) []int {
	out := make([]int, 0, len(list))
	for _, r := range list {
		out = append(out, r.ReturnCode)
	}
	return out
}

func TestHistory_BoundedPerRecord(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Append("a", result(i))
	}
	h.Append("b", result(9))

	assert.Equal(t, []int{3, 4, 5}, returnCodes(h.Get("a")))
	assert.Equal(t, []int{9}, returnCodes(h.Get("b")))
	assert.NotNil(t, h.Get("unknown"))
	assert.Empty(t, h.Get("unknown"))
}

func TestHistory_GetReturnsCopy(t *testing.T) {
	h := NewHistory(2)
	h.Append("a", result(1))
	got := h.Get("a")
	got[0].ReturnCode = 42
	assert.Equal(t, []int{1}, returnCodes(h.Get("a")))
}

func TestHistory_SetLimit(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 5; i++ {
		h.Append("a", result(i))
	}
	h.SetLimit(2)
	assert.Equal(t, 2, h.Limit())
	assert.Equal(t, []int{4, 5}, returnCodes(h.Get("a")))

	h.SetLimit(0)
	h.Append("a", result(6))
	assert.Empty(t, h.Get("a"))
}

func TestHistory_NegativeLimit(t *testing.T) {
	h := NewHistory(-1)
	assert.Equal(t, 0, h.Limit())
	h.Append("a", result(1))
	assert.Empty(t, h.Get("a"))
}

func TestHistory_Concurrent(t *testing.T) {
	h := NewHistory(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				h.Append("a", result(j))
				_ = h.Get("a")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, h.Get("a"), 50)
}
