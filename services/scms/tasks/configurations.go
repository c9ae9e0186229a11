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
	"fmt"

	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/fileformat"
)

// ReadConfiguration parses the configuration's file and attaches it as
// content. A missing file is a store.NotFoundError.
func ReadConfiguration(cfg datatypes.Configuration) (datatypes.ConfigurationOutput, error) {
	content, err := fileformat.ReadFile(cfg.Path, cfg.Format)
	if err != nil {
		return datatypes.ConfigurationOutput{}, fileError(cfg.Path, err)
	}
	return datatypes.ConfigurationOutput{Configuration: cfg, Content: content}, nil
}

// ConfigurationTask replaces a configuration file with new content.
//
// args is the new content. The file must already exist; it is replaced
// atomically and keeps its mode.
type ConfigurationTask struct{}

var _ action.Task[datatypes.Configuration] = ConfigurationTask{}

// Execute implements action.Task.
func (ConfigurationTask) Execute(_ context.Context, id string, cfg datatypes.Configuration, args any) (action.ProcessResult, error) {
	data, err := fileformat.Encode(args, cfg.Format)
	if err != nil {
		return action.ProcessResult{}, fmt.Errorf("configuration %s: %w", id, err)
	}
	if err := fileformat.WriteFile(cfg.Path, data); err != nil {
		return action.ProcessResult{}, fileError(cfg.Path, err)
	}
	return zeroResult(), nil
}
