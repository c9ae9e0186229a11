// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/scms/pkg/ux"
	"github.com/AleutianAI/scms/services/scms/app"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/settings"
	"github.com/AleutianAI/scms/services/scms/store"
)

var errInvalidConfig = errors.New("configuration is invalid")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the settings and every store file without serving",
		Long: `Load the settings and the four store files and report every problem:
unreadable or malformed documents and records that fail their schema.
Exits non-zero when anything is wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), opts.paths)
		},
	}
}

func runValidate(out io.Writer, paths settings.Paths) error {
	p := ux.NewPrinter(out)
	p.Title("Validating " + paths.Settings)

	s, err := settings.Load(paths)
	if err != nil {
		p.Error("settings: " + err.Error())
		return errInvalidConfig
	}
	p.Success("settings: " + paths.Settings)

	stores := app.NewStores(s)
	failed := false
	for _, l := range stores.Loaders() {
		err := l.Load()
		var verr *store.ValidationError
		switch {
		case err == nil:
			p.Success(fmt.Sprintf("%s: %s", l.Category, l.Path))
		case errors.As(err, &verr):
			failed = true
			p.Error(fmt.Sprintf("%s: %s", l.Category, l.Path))
			for _, f := range verr.Fields {
				p.Detail(describeField(f))
			}
		default:
			failed = true
			p.Error(fmt.Sprintf("%s: %v", l.Category, err))
		}
	}

	if failed {
		return errInvalidConfig
	}
	return nil
}

func describeField(f datatypes.FieldError) string {
	return fmt.Sprintf("%s: %s", f.Record, f.Message)
}
