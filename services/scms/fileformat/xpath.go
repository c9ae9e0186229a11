// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fileformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// ErrPathNotFound is returned when an xpath cannot be descended for writing.
var ErrPathNotFound = errors.New("xpath not found")

// PathError reports where an xpath stopped.
type PathError struct {
	// XPath is the full path being resolved.
	XPath []string

	// Depth is the index of the key that could not be resolved.
	Depth int

	// Reason describes the failure.
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("xpath %s: %s at %q", strings.Join(e.XPath, "."), e.Reason, e.XPath[e.Depth])
}

func (e *PathError) Unwrap() error { return ErrPathNotFound }

// Lookup descends doc through xpath.
//
// Mapping keys match exactly. A key that parses as a non-negative integer
// also indexes sequences.
//
// # Outputs
//
//   - any: The value at the end of the path. May be nil for an explicit null.
//   - bool: false when any step of the path does not exist.
func Lookup(doc any, xpath []string) (any, bool) {
	cur := doc
	for _, key := range xpath {
		next, ok := child(cur, key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v any, key string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		val, ok := t[key]
		return val, ok
	case []any:
		i, ok := index(key, len(t))
		if !ok {
			return nil, false
		}
		return t[i], true
	}
	return nil, false
}

func index(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// Assign sets the value at xpath inside a decoded document.
//
// Every key but the last must already exist. The last key is created in a
// mapping, or must be an in-range index of a sequence.
//
// # Outputs
//
//   - error: *PathError (matches ErrPathNotFound) when the parent cannot be
//     reached or is not a container.
func Assign(doc any, xpath []string, value any) error {
	if len(xpath) == 0 {
		return errors.New("xpath is empty")
	}
	parent := doc
	for depth, key := range xpath[:len(xpath)-1] {
		next, ok := child(parent, key)
		if !ok {
			return &PathError{XPath: xpath, Depth: depth, Reason: "missing key"}
		}
		parent = next
	}

	last := len(xpath) - 1
	key := xpath[last]
	switch t := parent.(type) {
	case map[string]any:
		t[key] = value
		return nil
	case []any:
		i, ok := index(key, len(t))
		if !ok {
			return &PathError{XPath: xpath, Depth: last, Reason: "index out of range"}
		}
		t[i] = value
		return nil
	}
	return &PathError{XPath: xpath, Depth: last, Reason: "parent is not a mapping or sequence"}
}

// =============================================================================
// YAML node editing
// =============================================================================

// AssignNode sets the value at xpath inside a parsed YAML document node,
// leaving comments, key order and sibling values intact.
//
// # Inputs
//
//   - root: A node from yaml.Unmarshal (DocumentNode or its content).
//   - xpath: Keys leading to the field. Same rules as Assign.
//   - value: The new value, passed through YAMLValue and encoded with
//     yaml.Node.Encode.
func AssignNode(root *yaml.Node, xpath []string, value any) error {
	if len(xpath) == 0 {
		return errors.New("xpath is empty")
	}

	var newValue yaml.Node
	if err := newValue.Encode(YAMLValue(value)); err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	parent := root
	if parent.Kind == yaml.DocumentNode {
		if len(parent.Content) == 0 {
			return &PathError{XPath: xpath, Depth: 0, Reason: "document is empty"}
		}
		parent = parent.Content[0]
	}
	for depth, key := range xpath[:len(xpath)-1] {
		next := nodeChild(resolveAlias(parent), key)
		if next == nil {
			return &PathError{XPath: xpath, Depth: depth, Reason: "missing key"}
		}
		parent = next
	}
	parent = resolveAlias(parent)

	last := len(xpath) - 1
	key := xpath[last]
	switch parent.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(parent.Content); i += 2 {
			if parent.Content[i].Value == key {
				replaceNode(parent.Content[i+1], &newValue)
				return nil
			}
		}
		parent.Content = append(parent.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&newValue)
		return nil
	case yaml.SequenceNode:
		i, ok := index(key, len(parent.Content))
		if !ok {
			return &PathError{XPath: xpath, Depth: last, Reason: "index out of range"}
		}
		replaceNode(parent.Content[i], &newValue)
		return nil
	}
	return &PathError{XPath: xpath, Depth: last, Reason: "parent is not a mapping or sequence"}
}

func nodeChild(n *yaml.Node, key string) *yaml.Node {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return n.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		if i, ok := index(key, len(n.Content)); ok {
			return n.Content[i]
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// replaceNode overwrites dst with src in place, keeping dst's comments and
// anchor so aliases elsewhere in the document still resolve.
func replaceNode(dst, src *yaml.Node) {
	head, line, foot, anchor := dst.HeadComment, dst.LineComment, dst.FootComment, dst.Anchor
	*dst = *src
	dst.HeadComment, dst.LineComment, dst.FootComment, dst.Anchor = head, line, foot, anchor
}

// EncodeNode serializes a YAML node tree with two-space indentation.
func EncodeNode(root *yaml.Node) ([]byte, error) {
	return Encode(root, datatypes.FormatYAML)
}
