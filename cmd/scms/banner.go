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
	"strconv"

	"github.com/AleutianAI/scms/pkg/ux"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/settings"
)

// printBanner shows the effective settings on an interactive terminal.
func printBanner(p *ux.Printer, s *settings.Settings, paths settings.Paths) {
	if p.Plain() {
		return
	}
	p.Panel("SCMS "+Version, bannerRows(s, paths))
}

func bannerRows(s *settings.Settings, paths settings.Paths) []ux.Row {
	rows := []ux.Row{
		{Key: "listen", Value: "http://" + s.Addr()},
		{Key: "settings", Value: paths.Settings},
		{Key: "workers", Value: strconv.Itoa(s.Workers)},
		{Key: "reload", Value: onOff(s.Reload)},
		{Key: "tracing", Value: s.Tracing.Exporter},
	}
	for _, c := range datatypes.Categories {
		rows = append(rows, ux.Row{Key: string(c), Value: s.StorePath(c)})
	}
	return rows
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
