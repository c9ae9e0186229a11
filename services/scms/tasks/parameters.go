// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/fileformat"
	"github.com/AleutianAI/scms/services/scms/store"
)

// ReadParameter resolves the parameter's xpath inside its source file.
//
// A path that leads nowhere is not an error: NotFound is set and Value is
// nil. A key holding null or an empty mapping counts as not found too. A
// missing source file is a store.NotFoundError.
func ReadParameter(p datatypes.Parameter) (datatypes.ParameterOutput, error) {
	doc, err := fileformat.ReadFile(p.Source, p.Format)
	if err != nil {
		return datatypes.ParameterOutput{}, fileError(p.Source, err)
	}
	value, found := fileformat.Lookup(doc, p.XPath)
	if !found || isEmptyValue(value) {
		return datatypes.ParameterOutput{Parameter: p, NotFound: true}, nil
	}
	return datatypes.ParameterOutput{Parameter: p, Value: value}, nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

// ParameterTask writes a new value at a parameter's xpath.
//
// args is the new value. Every key before the last must exist. YAML sources
// are edited through the node tree so comments, key order and sibling
// values are kept.
type ParameterTask struct{}

var _ action.Task[datatypes.Parameter] = ParameterTask{}

// Execute implements action.Task.
func (ParameterTask) Execute(_ context.Context, id string, p datatypes.Parameter, args any) (action.ProcessResult, error) {
	raw, err := os.ReadFile(p.Source)
	if err != nil {
		return action.ProcessResult{}, fileError(p.Source, err)
	}

	var data []byte
	switch p.Format {
	case datatypes.FormatYAML:
		data, err = assignYAML(raw, p.XPath, args)
	case datatypes.FormatJSON:
		data, err = assignJSON(raw, p.XPath, args)
	default:
		err = fmt.Errorf("%w: %q", fileformat.ErrUnsupportedFormat, p.Format)
	}
	if err != nil {
		if errors.Is(err, fileformat.ErrPathNotFound) {
			return action.ProcessResult{}, &store.NotFoundError{
				Name:    p.Source,
				File:    true,
				Message: fmt.Sprintf("%v in %s", err, p.Source),
			}
		}
		if errors.Is(err, fileformat.ErrMalformed) {
			return action.ProcessResult{}, fileError(p.Source, err)
		}
		return action.ProcessResult{}, fmt.Errorf("parameter %s: %w", id, err)
	}

	if err := fileformat.WriteFile(p.Source, data); err != nil {
		return action.ProcessResult{}, fileError(p.Source, err)
	}
	return zeroResult(), nil
}

func assignYAML(raw []byte, xpath []string, value any) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &fileformat.DecodeError{Format: datatypes.FormatYAML, Err: err}
	}
	if err := fileformat.AssignNode(&root, xpath, value); err != nil {
		return nil, err
	}
	return fileformat.EncodeNode(&root)
}

func assignJSON(raw []byte, xpath []string, value any) ([]byte, error) {
	doc, err := fileformat.Decode(raw, datatypes.FormatJSON)
	if err != nil {
		return nil, err
	}
	if err := fileformat.Assign(doc, xpath, value); err != nil {
		return nil, err
	}
	return fileformat.Encode(doc, datatypes.FormatJSON)
}
