// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tasks implements the action.Task of each category and the
// read-side resolution of configuration and parameter outputs.
package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/fileformat"
	"github.com/AleutianAI/scms/services/scms/process"
	"github.com/AleutianAI/scms/services/scms/store"
)

// CommandTask runs a command script through the shell.
//
// Non-daemon scripts run synchronously and their output and exit status are
// captured. Request cancellation does not stop them. Daemon scripts are
// launched detached through Processes and the result carries no return code.
type CommandTask struct {
	Processes *process.Registry
}

var _ action.Task[datatypes.Command] = (*CommandTask)(nil)

// Execute implements action.Task.
func (t *CommandTask) Execute(ctx context.Context, id string, cmd datatypes.Command, _ any) (action.ProcessResult, error) {
	if cmd.Daemon {
		if t.Processes == nil {
			return action.ProcessResult{}, fmt.Errorf("command %s: no process registry for daemons", id)
		}
		if _, err := t.Processes.Launch(id, cmd.Script); err != nil {
			return action.ProcessResult{}, err
		}
		return action.ProcessResult{}, nil
	}

	c := process.Command(context.WithoutCancel(ctx), cmd.Script)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	code, ok := process.ExitCode(err)
	if !ok {
		return action.ProcessResult{}, fmt.Errorf("running command %s: %w", id, err)
	}
	return action.ProcessResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ReturnCode: &code,
	}, nil
}

// fileError converts a missing target file into a store.NotFoundError and
// an unparseable one into a store.DocumentError.
func fileError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return store.FileNotFound(path)
	case errors.Is(err, fileformat.ErrMalformed):
		var decodeErr *fileformat.DecodeError
		if errors.As(err, &decodeErr) {
			return &store.DocumentError{Path: path, Err: decodeErr}
		}
		return &store.DocumentError{Path: path, Err: err}
	}
	return err
}

func zeroResult() action.ProcessResult {
	code := 0
	return action.ProcessResult{ReturnCode: &code}
}
