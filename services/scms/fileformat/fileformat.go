// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fileformat reads, edits and writes the external JSON and YAML
// files targeted by configurations and parameters.
//
// Decoded documents use map[string]any, []any and scalars. JSON numbers
// are kept as json.Number so integers round-trip unchanged.
package fileformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/datatypes"
)

// ErrUnsupportedFormat is returned for formats other than yaml and json.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrMalformed matches every DecodeError.
var ErrMalformed = errors.New("malformed document")

// ErrTrailingData is wrapped by a DecodeError when a JSON document is
// followed by anything other than whitespace.
var ErrTrailingData = errors.New("unexpected data after top-level value")

// DecodeError reports content that does not parse in its declared format.
type DecodeError struct {
	Format datatypes.Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformed }

// Decode parses data in the given format.
func Decode(data []byte, format datatypes.Format) (any, error) {
	switch format {
	case datatypes.FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, &DecodeError{Format: format, Err: err}
		}
		var rest json.RawMessage
		if err := dec.Decode(&rest); !errors.Is(err, io.EOF) {
			return nil, &DecodeError{Format: format, Err: ErrTrailingData}
		}
		return v, nil
	case datatypes.FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, &DecodeError{Format: format, Err: err}
		}
		return Normalize(v), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Encode serializes v in the given format with two-space indentation and a
// trailing newline.
func Encode(v any, format datatypes.Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case datatypes.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
	case datatypes.FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(YAMLValue(v)); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

// ReadFile reads and decodes path. A missing file yields an error matching
// fs.ErrNotExist.
func ReadFile(path string, format datatypes.Format) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Normalize converts map[any]any produced by YAML decoding into
// map[string]any so documents can be served as JSON.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	}
	return v
}

// YAMLValue prepares a decoded JSON value for YAML encoding. yaml.v3 writes
// json.Number as a quoted string, so numbers become int64 or float64. A
// literal that fits neither becomes a tagged scalar node holding the exact
// digits. Maps and slices are copied; v is not modified.
func YAMLValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		return yamlNumber(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = YAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = YAMLValue(val)
		}
		return out
	}
	return v
}

func yamlNumber(n json.Number) any {
	lit := n.String()
	integer := !strings.ContainsAny(lit, ".eE")
	if integer {
		if i, err := n.Int64(); err == nil {
			return i
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: lit}
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: lit}
}

// WriteFile replaces the existing file at path with data.
//
// # Description
//
// The data is written to a temporary file in the same directory, synced,
// given the mode of the original and renamed over it, so readers never
// observe a partial file.
//
// # Outputs
//
//   - error: Matches fs.ErrNotExist when path does not exist.
func WriteFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	tmpName = ""
	return nil
}
