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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/scms/services/scms/settings"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	paths settings.Paths
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{paths: settings.DefaultPaths()}

	cmd := &cobra.Command{
		Use:   "scms",
		Short: "Serve chains, commands, configurations and parameters over HTTP",
		Long: `scms exposes four YAML-backed categories of records over a small
HTTP API: chain links, shell commands, whole configuration files and
single parameters inside them. Running scms without a subcommand is
the same as "scms serve".`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.paths.Settings, "settings", opts.paths.Settings, "settings file")
	f.StringVar(&opts.paths.Secrets, "secrets", opts.paths.Secrets, "secrets file overlaid on the settings file")
	f.StringVar(&opts.paths.Env, "env", opts.paths.Env, "dotenv file with SCMS_* overrides")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
